package report

import (
	"strings"
	"text/template"
)

// sectionView is one rendered Markdown section: a heading and the
// 3-column rows beneath it.
type sectionView struct {
	Heading string
	Rows    []rowView
}

type rowView struct {
	Package     string
	Version     string
	Detail      string
	DonationURL string
}

const markdownTemplate = `# Installation report
{{range .ToolingChanges}}
Installed {{.Name}} {{.Info.Version}} ({{.Info.AssetName}}).
{{- end}}
{{range .Sections}}
## {{.Heading}}

| Package | Version | Detail |
|---|---|---|
{{range .Rows}}| {{.Package}} | {{.Version}} | {{.Detail}}{{if .DonationURL}} [donate]({{.DonationURL}}){{end}} |
{{end}}{{end}}`

var tmpl = template.Must(template.New("report").Parse(markdownTemplate))

// Markdown renders a grouped Failure/Replacement/Addition report: each
// section carries a heading and a 3-column (package | version | detail)
// table; fresh additions get an optional trailing donation link, never
// shown for replacements.
func (r Report) Markdown(donationURLs map[string]string) (string, error) {
	data := struct {
		ToolingChanges []ToolingChange
		Sections       []sectionView
	}{ToolingChanges: r.ToolingChanges}

	for _, cat := range []Category{Failure, Replacement, Addition} {
		outcomes := r.ByCategory(cat)
		if len(outcomes) == 0 {
			continue
		}
		sec := sectionView{Heading: sectionHeading(cat)}
		for _, o := range outcomes {
			row := rowView{
				Package: o.Identity.Package,
				Version: versionColumn(o),
				Detail:  o.Detail(),
			}
			if cat == Addition && donationURLs != nil {
				row.DonationURL = donationURLs[o.Identity.Package]
			}
			sec.Rows = append(sec.Rows, row)
		}
		data.Sections = append(data.Sections, sec)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sectionHeading(c Category) string {
	switch c {
	case Failure:
		return "Failures"
	case Replacement:
		return "Replacements"
	case Addition:
		return "New packages"
	default:
		return "Other"
	}
}

func versionColumn(o PackagePreparationOutcome) string {
	switch o.Kind {
	case ToBeAdded:
		return o.NewVersion
	case ToBeReplaced:
		return o.OldVersion + " -> " + o.NewVersion
	default:
		return ""
	}
}
