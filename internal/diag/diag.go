// Package diag carries localized diagnostic messages for quarantine
// reasons and resolver feedback, the way the teacher's result.go carries
// localized EvaluationErrors over a kaptinlin/go-i18n bundle.
package diag

import (
	"embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/go-i18n"
)

//go:embed locales/*.json
var localesFS embed.FS

// Diagnostic codes used across the resolver, mapper, and merge engine.
const (
	CodeResolverNoMatch        = "resolver.no_match"
	CodeResolverAmbiguous      = "resolver.ambiguous"
	CodeResolverCandidateFail  = "resolver.candidate_failed"
	CodeMergeImmutableConflict = "merge.immutable_conflict"
	CodeMappingRequiredMissing = "mapping.required_missing"
	CodeQuarantineParseError   = "quarantine.parse_error"
)

var (
	bundleOnce sync.Once
	bundle     *i18n.I18n
	bundleErr  error
)

// Bundle lazily loads and caches the embedded locale catalog.
func Bundle() (*i18n.I18n, error) {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(i18n.WithDefaultLocale("en"), i18n.WithLocales("en"))
		bundleErr = b.LoadFS(localesFS, "locales/*.json")
		bundle = b
	})
	return bundle, bundleErr
}

// Localizer returns a localizer for locale, falling back to the bundle's
// default when unsupported.
func Localizer(locale string) (*i18n.Localizer, error) {
	b, err := Bundle()
	if err != nil {
		return nil, err
	}
	return b.NewLocalizer(locale), nil
}

// Diagnostic is one localizable message plus the structured parameters a
// caller can render for logs or human-readable feedback, mirroring the
// teacher's EvaluationError{Code,Params}/Localize shape.
type Diagnostic struct {
	Code   string
	Params map[string]any
}

func New(code string, params map[string]any) Diagnostic {
	return Diagnostic{Code: code, Params: params}
}

// Localize resolves the diagnostic's message in localizer's locale. A nil
// localizer falls back to a raw code:params rendering.
func (d Diagnostic) Localize(localizer *i18n.Localizer) string {
	if localizer == nil {
		return d.Error()
	}
	return localizer.Get(d.Code, i18n.Vars(d.Params))
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %v", d.Code, d.Params)
}
