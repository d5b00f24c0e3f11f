package canonical

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

// XMLAdapter decodes application/xml payloads into the canonical tree,
// collapsing repeated child elements into ordered sequences and, where the
// document is an X-Road style SOAP envelope, lifting registry/service/method
// codes into meta. No third-party XML library exists anywhere in the
// retrieved example corpus, so this adapter is built on the standard
// library's encoding/xml — the one ambient concern in this package without
// a corpus-sourced third-party dependency.
type XMLAdapter struct{}

func (XMLAdapter) CanHandle(raw RawDocument) bool {
	return raw.ContentType == "application/xml"
}

func (XMLAdapter) Process(raw RawDocument) CanonicalDocument {
	rawHash := raw.ContentHash
	if rawHash == "" {
		rawHash = Sha256Hex(raw.Bytes)
	}
	meta := map[string]any{"file_path": raw.FilePath, "content_type": raw.ContentType}

	var parseErr string
	var data tree.Node

	root, err := parseXML(raw.Bytes)
	if err != nil {
		parseErr = fmt.Sprintf("xml_parse_error: %v", err)
		data = tree.FromAny(map[string]any{"_raw_preview": previewString(raw.Bytes)})
	} else {
		for k, v := range extractXRoadMeta(root) {
			meta[k] = v
		}
		m := tree.NewMapping()
		m.Set(root.Name, xmlElementToTree(root))
		data = m
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

// xmlElem is a minimal parsed XML element tree: local name, text content
// (only meaningful when Children is empty), and ordered children.
type xmlElem struct {
	Name     string
	Text     string
	Children []*xmlElem
}

func parseXML(b []byte) (*xmlElem, error) {
	dec := xml.NewDecoder(strings.NewReader(string(b)))

	var stack []*xmlElem
	var root *xmlElem

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElem{Name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

// xmlElementToTree mirrors the original _xml_to_dict: a childless element
// becomes its trimmed text (or nil for empty text); an element with
// children becomes a Mapping, repeated child names collapsing into
// sequences via Mapping.Append.
func xmlElementToTree(el *xmlElem) tree.Node {
	if len(el.Children) == 0 {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			return tree.NewScalar(nil)
		}
		return tree.NewScalar(text)
	}
	m := tree.NewMapping()
	for _, ch := range el.Children {
		m.Append(ch.Name, xmlElementToTree(ch))
	}
	return m
}

// extractXRoadMeta probes for an X-Road SOAP envelope's Header block and
// lifts registry_code/service_code/method_code when present. Absence of the
// envelope is not an error — most payloads in this corpus are not X-Road.
func extractXRoadMeta(root *xmlElem) map[string]any {
	meta := map[string]any{}
	if root.Name != "Envelope" {
		return meta
	}
	header := findChild(root, "Header")
	if header == nil {
		return meta
	}

	client := findChild(header, "client")
	service := findChild(header, "service")

	if client != nil {
		if v := findText(client, "subsystemCode"); v != "" {
			meta["registry_code"] = v
		}
	}
	if service != nil {
		if v := findText(service, "subsystemCode"); v != "" {
			meta["service_code"] = v
		}
		if v := findText(service, "serviceCode"); v != "" {
			meta["method_code"] = v
		}
	}
	if v := findText(header, "id"); v != "" {
		meta["xroad_request_id"] = v
	}
	if v := findText(header, "userId"); v != "" {
		meta["xroad_user_id"] = v
	}
	return meta
}

func findChild(el *xmlElem, name string) *xmlElem {
	for _, ch := range el.Children {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// findText searches el's subtree (depth-first) for the first element named
// name and returns its trimmed text.
func findText(el *xmlElem, name string) string {
	if el.Name == name {
		return strings.TrimSpace(el.Text)
	}
	for _, ch := range el.Children {
		if v := findText(ch, name); v != "" {
			return v
		}
	}
	return ""
}
