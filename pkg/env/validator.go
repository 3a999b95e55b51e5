package env

import (
	"net"
	"regexp"
	"strconv"
)

var hostnamePattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

func IsEmpty(value string) bool {
	return value == ""
}

// Port number
func IsValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n > 0 && n <= 65535
}

func IsValidIPAddress(ipAddress string) bool {
	if ipAddress == "localhost" {
		return true
	}
	return net.ParseIP(ipAddress) != nil
}

// IsValidHost accepts IP addresses and DNS host names.
func IsValidHost(host string) bool {
	if IsEmpty(host) {
		return false
	}
	return IsValidIPAddress(host) || hostnamePattern.MatchString(host)
}
