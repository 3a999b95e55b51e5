package statements

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/yaw/dbproxy/internal/dbproxy/coercion"
)

//go:embed catalog/statements.json
var defaultCatalog []byte

var catalogJSON = jsoniter.Config{
	DisallowUnknownFields: true,
}.Froze()

// catalogEntry is the on-disk shape of one statement.
type catalogEntry struct {
	Statement      string            `json:"statement"`
	IsQuery        bool              `json:"is_query"`
	IsPaged        bool              `json:"is_paged"`
	PerPageResults int64             `json:"per_page_results"`
	IsPrepared     bool              `json:"is_prepared"`
	Casting        map[string]string `json:"casting"`
}

// LoadCatalog reads the catalog at path, or the embedded catalog when path is empty.
func LoadCatalog(path string) ([]*Descriptor, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read statement catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document into descriptors sorted by name.
func ParseCatalog(data []byte) ([]*Descriptor, error) {
	var entries map[string]catalogEntry
	if err := catalogJSON.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid statement catalog: %w", err)
	}

	descriptors := make([]*Descriptor, 0, len(entries))
	for name, entry := range entries {
		params, err := parseCasting(entry.Casting)
		if err != nil {
			return nil, fmt.Errorf("statement %s: %w", name, err)
		}
		d := &Descriptor{
			Name:       name,
			Text:       entry.Statement,
			IsQuery:    entry.IsQuery,
			IsPrepared: entry.IsPrepared,
			IsPaged:    entry.IsPaged,
			ParamTypes: params,
		}
		if entry.PerPageResults < 0 || entry.PerPageResults > int64(^uint32(0)>>1) {
			return nil, fmt.Errorf("statement %s: per_page_results out of range: %d", name, entry.PerPageResults)
		}
		d.PageSize = int(entry.PerPageResults)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors, nil
}

// parseCasting turns {"0": "Text", "1": "BigInt"} into an ordered tag list.
// Positions must be dense from 0.
func parseCasting(casting map[string]string) ([]coercion.TypeTag, error) {
	tags := make([]coercion.TypeTag, len(casting))
	seen := make([]bool, len(casting))
	for key, name := range casting {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(casting) {
			return nil, fmt.Errorf("casting position %q must be an index between 0 and %d", key, len(casting)-1)
		}
		if seen[idx] {
			return nil, fmt.Errorf("casting position %d declared twice", idx)
		}
		tag, err := coercion.ParseTypeTag(name)
		if err != nil {
			return nil, fmt.Errorf("casting position %d: %w", idx, err)
		}
		tags[idx] = tag
		seen[idx] = true
	}
	return tags, nil
}
