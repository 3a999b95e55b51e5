package session

import (
	"context"
	"fmt"

	"github.com/scylladb/gocqlx/v2"
	"github.com/scylladb/gocqlx/v2/qb"
)

// HealthCheck reads the release version of the coordinator node.
func (s *Session) HealthCheck(ctx context.Context) (string, error) {
	stmt, names := qb.Select("system.local").Columns("release_version").ToCql()

	var release string
	if err := gocqlx.Query(s.session.Query(stmt), names).WithContext(ctx).GetRelease(&release); err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	return release, nil
}
