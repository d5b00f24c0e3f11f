package canonical

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

// JSONAdapter decodes application/json payloads, repairing the one
// malformation the source registries are known to emit (a trailing comma
// before a closing bracket) before falling back to non-JSON recovery paths.
type JSONAdapter struct{}

func (JSONAdapter) CanHandle(raw RawDocument) bool {
	return raw.ContentType == "application/json"
}

var trailingComma = regexp.MustCompile(`,(\s*[\]}])`)

func stripTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

func (JSONAdapter) Process(raw RawDocument) CanonicalDocument {
	rawHash := raw.ContentHash
	if rawHash == "" {
		rawHash = Sha256Hex(raw.Bytes)
	}
	meta := map[string]any{"file_path": raw.FilePath, "content_type": raw.ContentType}

	rawStr := strings.ToValidUTF8(string(raw.Bytes), "�")
	repaired := stripTrailingCommas(rawStr)

	var decoded any
	var parseErr string
	var data tree.Node

	if err := json.Unmarshal([]byte(repaired), &decoded); err == nil {
		data = tree.FromAny(decoded)
		for k, v := range heuristicMetaFromJSON(decoded) {
			meta[k] = v
		}
	} else {
		data, parseErr, meta = recoverNonJSON(rawStr, meta, err)
	}

	canonicalBytes := serialize(meta, data)
	return CanonicalDocument{
		FilePath:      raw.FilePath,
		ContentType:   raw.ContentType,
		RawHash:       rawHash,
		CanonicalHash: Sha256Hex(canonicalBytes),
		Meta:          meta,
		Data:          data,
		ParseError:    parseErr,
	}
}

// heuristicMetaFromJSON recognizes one well-known JSON envelope shape (an
// EIS-style person record under root.result) and pre-populates registry/
// service codes as a best-effort hint. The variant resolver never relies on
// this — it re-derives the same signal (or better) via predicates.
func heuristicMetaFromJSON(v any) map[string]any {
	meta := map[string]any{}
	root, ok := v.(map[string]any)
	if !ok {
		return meta
	}
	r, ok := root["root"].(map[string]any)
	if !ok {
		return meta
	}
	result, ok := r["result"].(map[string]any)
	if !ok {
		return meta
	}
	for _, k := range []string{"rnokpp", "unzr", "first_name", "last_name", "date_birth"} {
		if _, ok := result[k]; ok {
			meta["registry_code"] = "EIS"
			meta["service_code"] = "PERSON"
			break
		}
	}
	return meta
}

// recoverNonJSON attempts, in order: the custom "HEADER_* = value" log-line
// format (only for input containing "HEADER_Uxp"), then form/query-string
// decoding, then a final opaque preview.
// It returns the recovered tree, a non-empty parse error only when every
// recovery attempt failed, and the (possibly updated) meta map.
func recoverNonJSON(rawStr string, meta map[string]any, jsonErr error) (tree.Node, string, map[string]any) {
	if logData, ok := parseHeaderLog(rawStr); ok {
		if registryCodeFromHeaderLog(logData) != "" {
			meta["registry_code"] = registryCodeFromHeaderLog(logData)
		}
		return tree.FromAny(map[string]any{"data": logData}), "", meta
	}

	if qs, ok := parseQueryString(rawStr); ok {
		if _, hasDateSearch := qs["date_search"]; hasDateSearch {
			meta["registry_code"] = "REQUEST_QS"
		}
		return tree.FromAny(map[string]any{"data": qs}), "", meta
	}

	preview := previewString([]byte(rawStr))
	return tree.FromAny(map[string]any{"_raw_preview": preview}),
		fmt.Sprintf("json_parse_error: %v", jsonErr), meta
}

// parseHeaderLog recognizes the registries' custom "HEADER_Uxp... = value"
// line-oriented log format: one KEY = VALUE assignment per line.
func parseHeaderLog(s string) (map[string]string, bool) {
	if !strings.Contains(s, "HEADER_Uxp") {
		return nil, false
	}
	out := map[string]string{}
	for _, line := range strings.Split(s, "\n") {
		if idx := strings.Index(line, "="); idx >= 0 {
			k := strings.TrimSpace(line[:idx])
			v := strings.TrimSpace(line[idx+1:])
			if k != "" {
				out[k] = v
			}
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func registryCodeFromHeaderLog(data map[string]string) string {
	for _, v := range data {
		switch {
		case strings.Contains(v, "GetParcelListByOwner"):
			return "REQUEST_DZK"
		case strings.Contains(v, "InfoIncomeSourcesDRFO2Query"):
			return "REQUEST_DRFO"
		}
	}
	return ""
}

// parseQueryString recognizes a form-encoded query string (key=value&...),
// mirroring Python's parse_qs(keep_blank_values=False): unlike
// url.ParseQuery, parse_qs drops blank-valued pairs and returns {} for any
// input with no "=" at all, so a bare unstructured string is never mistaken
// for form data. url.ParseQuery instead happily returns a single entry
// keying the whole input to an empty value, which would otherwise make
// every non-JSON string "recover" here instead of falling through to the
// parse_error/preview path.
func parseQueryString(s string) (map[string]any, bool) {
	if !strings.Contains(s, "=") {
		return nil, false
	}
	vals, err := url.ParseQuery(s)
	if err != nil {
		return nil, false
	}
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		nonBlank := make([]string, 0, len(v))
		for _, sv := range v {
			if sv != "" {
				nonBlank = append(nonBlank, sv)
			}
		}
		if len(nonBlank) == 0 {
			continue
		}
		if len(nonBlank) == 1 {
			out[k] = nonBlank[0]
		} else {
			anyV := make([]any, len(nonBlank))
			for i, sv := range nonBlank {
				anyV[i] = sv
			}
			out[k] = anyV
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
