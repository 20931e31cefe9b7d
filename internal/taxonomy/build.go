package taxonomy

import (
	"context"
	"fmt"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"
	"superdb/lib/fetch"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_build_locale = "build.locale"
)

var tracer = otel.Tracer("superdb/taxonomy")

// Build scrapes the search form of every locale. A locale that fails is
// reported and left out, the canonical locale is required.
func Build(ctx context.Context, client fetch.Client, site ygodb.Site, locales []string, tel telemetry.API) (Map, error) {
	ctx, span := tracer.Start(ctx, "Build")
	defer span.End()

	tel = telemetry.NewScopedAPI("taxonomy", tel)

	out := Map{}
	for _, locale := range locales {
		link := site.VocabularyUrl(locale)
		doc, err := client.Document(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			tel.ReportBroken(report_build_locale, err, locale, link)
			continue
		}
		page, err := ygodb.ExtractVocabulary(doc)
		if err != nil {
			tel.ReportBroken(report_build_locale, err, locale, link)
			continue
		}
		out[locale] = FromPage(locale, page)
		tel.ReportDebug("vocabulary scraped", locale, len(page.Attribute), len(page.MonsterType), len(page.Type))
	}
	out.ApplyOverrides()

	span.SetAttributes(attribute.Int("locales", len(out)))
	if _, ok := out[ygodb.CanonicalLocale]; !ok {
		return out, fmt.Errorf("build translations: canonical locale %q could not be scraped", ygodb.CanonicalLocale)
	}
	return out, nil
}
