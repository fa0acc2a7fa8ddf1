package prepare

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/hooks"
)

// defaultMetaDenyList keeps host-internal bookkeeping keys out of documents.
var defaultMetaDenyList = []string{
	"session_tokens",
	"edit_lock",
	"edit_last",
}

// prepareMeta applies the allow/deny/force policy over raw meta and projects
// each surviving value into its typed forms. Source meta is inherently
// multi-valued, so every key maps to a list.
func (p *Preparer) prepareMeta(ctx context.Context, entityID int64, raw map[string][]string) map[string][]document.MetaValue {
	out := make(map[string][]document.MetaValue, len(raw))
	for key, values := range raw {
		if !p.shouldIndexMetaKey(ctx, entityID, key) {
			continue
		}
		records := make([]document.MetaValue, 0, len(values))
		for _, v := range values {
			for _, expanded := range expandSerialized(v) {
				records = append(records, buildMetaValue(expanded))
			}
		}
		if len(records) > 0 {
			out[key] = records
		}
	}
	return out
}

// shouldIndexMetaKey applies the key policy: protected (underscore-prefixed)
// keys need the allow list, public keys must avoid the deny list, and the
// force-include hook overrides both.
func (p *Preparer) shouldIndexMetaKey(ctx context.Context, entityID int64, key string) bool {
	var indexable bool
	if strings.HasPrefix(key, "_") {
		allow := p.hooks.ApplyStrings(ctx, hooks.PointMetaAllowList, nil)
		indexable = containsString(allow, key)
	} else {
		deny := p.hooks.ApplyStrings(ctx, hooks.PointMetaDenyList, defaultMetaDenyList)
		indexable = !containsString(deny, key)
	}

	decision := hooks.MetaKeyDecision{EntityID: entityID, Key: key, Include: indexable}
	if out, ok := p.hooks.Apply(ctx, hooks.PointMetaForceInclude, decision).(hooks.MetaKeyDecision); ok {
		return out.Include
	}
	return indexable
}

// expandSerialized unwraps a JSON-serialized list of scalars into individual
// values. Objects and nested arrays stay opaque as their raw serialization.
func expandSerialized(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return []string{raw}
	}
	var items []any
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return []string{raw}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		default:
			// nested structure: keep the whole raw value opaque
			return []string{raw}
		}
	}
	if len(out) == 0 {
		return []string{raw}
	}
	return out
}

// buildMetaValue type-sniffs one raw value into its projections.
func buildMetaValue(raw string) document.MetaValue {
	mv := document.MetaValue{Value: raw, Raw: raw}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f := float64(n)
		mv.Long = &n
		mv.Double = &f
	} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
		mv.Double = &f
	}

	switch strings.ToLower(raw) {
	case "true":
		b := true
		mv.Boolean = &b
	case "false":
		b := false
		mv.Boolean = &b
	}

	if t, err := time.Parse(StoreLayout, raw); err == nil {
		mv.Date = t.Format("2006-01-02")
		mv.Datetime = raw
		mv.Time = t.Format("15:04:05")
	} else if t, err := time.Parse("2006-01-02", raw); err == nil {
		mv.Date = raw
		mv.Datetime = t.Format(StoreLayout)
		mv.Time = "00:00:00"
	} else if _, err := time.Parse("15:04:05", raw); err == nil {
		mv.Time = raw
	}

	return mv
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
