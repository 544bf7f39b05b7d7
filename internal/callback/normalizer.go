package callback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
	"github.com/oliveagle/jsonpath"
)

// Fields lists, per callback field, the JSONPath expressions tried in order.
// The first expression that resolves to a non-null value wins.
type Fields struct {
	JobID     []string
	Success   []string
	Items     []string
	ItemCount []string
	Error     []string
}

// DefaultFields matches the payload shape sent by the scrape workflow
func DefaultFields() Fields {
	return Fields{
		JobID:     []string{"$.jobId", "$.job_id"},
		Success:   []string{"$.success"},
		Items:     []string{"$.items"},
		ItemCount: []string{"$.itemCount", "$.item_count"},
		Error:     []string{"$.error", "$.errorMessage"},
	}
}

// Normalizer turns loosely typed callback payloads into typed records
type Normalizer struct {
	marker    string
	jobID     []*jsonpath.Compiled
	success   []*jsonpath.Compiled
	items     []*jsonpath.Compiled
	itemCount []*jsonpath.Compiled
	errorMsg  []*jsonpath.Compiled
}

// NewNormalizer compiles the field expressions. marker is the stray prefix
// stripped once from string values; empty disables stripping.
func NewNormalizer(marker string, fields Fields) (*Normalizer, error) {
	n := &Normalizer{marker: marker}

	groups := []struct {
		name  string
		paths []string
		dst   *[]*jsonpath.Compiled
	}{
		{"jobId", fields.JobID, &n.jobID},
		{"success", fields.Success, &n.success},
		{"items", fields.Items, &n.items},
		{"itemCount", fields.ItemCount, &n.itemCount},
		{"error", fields.Error, &n.errorMsg},
	}
	for _, g := range groups {
		for _, path := range g.paths {
			if path = strings.TrimSpace(path); path == "" {
				continue
			}
			compiled, err := jsonpath.Compile(path)
			if err != nil {
				return nil, fmt.Errorf("invalid JSONPath expression '%s' for %s: %w", path, g.name, err)
			}
			*g.dst = append(*g.dst, compiled)
		}
	}

	if len(n.jobID) == 0 {
		return nil, fmt.Errorf("at least one jobId expression is required")
	}
	return n, nil
}

// NewNormalizerFromConfig builds a normalizer from callback settings
func NewNormalizerFromConfig(cfg config.CallbackConfig) (*Normalizer, error) {
	return NewNormalizer(cfg.Marker, Fields{
		JobID:     cfg.JobIDPaths,
		Success:   cfg.SuccessPaths,
		Items:     cfg.ItemsPaths,
		ItemCount: cfg.ItemCountPaths,
		Error:     cfg.ErrorPaths,
	})
}

// Normalize decodes a raw JSON body and normalizes it
func (n *Normalizer) Normalize(raw []byte) (model.CallbackRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return model.CallbackRecord{}, fmt.Errorf("%w: payload is not JSON: %v", model.ErrMissingJobID, err)
	}
	return n.NormalizeValue(payload)
}

// NormalizeValue normalizes an already decoded payload. A top-level array
// is treated as a batch and its first object is used.
func (n *Normalizer) NormalizeValue(payload interface{}) (model.CallbackRecord, error) {
	obj, ok := firstObject(payload)
	if !ok {
		return model.CallbackRecord{}, fmt.Errorf("%w: payload is not an object", model.ErrMissingJobID)
	}

	var record model.CallbackRecord

	if v, ok := lookup(n.jobID, obj); ok {
		if _, isBool := v.(bool); !isBool {
			if s, ok := coerceScalarString(v); ok {
				record.JobID = stripMarker(s, n.marker)
			}
		}
	}
	if record.JobID == "" {
		return model.CallbackRecord{}, model.ErrMissingJobID
	}

	if v, ok := lookup(n.success, obj); ok {
		record.Success = coerceBool(v, n.marker)
	}

	record.Items = []string{}
	if v, ok := lookup(n.items, obj); ok {
		record.Items = n.normalizeItems(v)
	}

	record.ItemCount = len(record.Items)
	if v, ok := lookup(n.itemCount, obj); ok {
		if count, ok := coerceCount(v, n.marker); ok {
			record.ItemCount = count
		}
	}

	if v, ok := lookup(n.errorMsg, obj); ok {
		if s, ok := coerceScalarString(v); ok {
			record.ErrorDetail = stripMarker(s, n.marker)
		} else {
			record.ErrorDetail = coerceItem(v)
		}
	}

	slog.Debug("Callback normalized",
		"job_id", record.JobID,
		"success", record.Success,
		"item_count", record.ItemCount,
	)

	return record, nil
}

func (n *Normalizer) normalizeItems(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return splitItems(stripMarker(v, n.marker))
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, elem := range v {
			if s := coerceItem(elem); s != "" {
				items = append(items, s)
			}
		}
		return items
	default:
		return []string{}
	}
}

func firstObject(payload interface{}) (map[string]interface{}, bool) {
	switch v := payload.(type) {
	case map[string]interface{}:
		return v, true
	case []interface{}:
		for _, elem := range v {
			if obj, ok := elem.(map[string]interface{}); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// lookup returns the first non-null value any expression resolves to
func lookup(paths []*jsonpath.Compiled, obj interface{}) (interface{}, bool) {
	for _, p := range paths {
		v, err := p.Lookup(obj)
		if err != nil || v == nil {
			continue
		}
		return v, true
	}
	return nil, false
}
