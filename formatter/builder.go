package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/verify"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	removedStyle    = color.New(color.FgRed)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
	noStyle         = color.New(color.FgWhite)
)

// reportTemplate is implemented by every kind of report.
type reportTemplate interface {
	Template() string
}

// ReportData is the view rendered by the templates.
type ReportData struct {
	Status       string
	Label        string
	Soul         string
	Before       string
	After        string
	Rules        []string
	InitialScore float64
	FinalScore   float64
	Change       float64
	Iterations   int
	Duration     time.Duration
	CacheHit     bool
	Message      string
}

type improvedReport struct{}

func (improvedReport) Template() string {
	return `{{header .Status .Label .Soul -}}
{{diff .Before .After -}}
{{score .InitialScore .FinalScore .Change -}}
{{rules .Rules -}}
{{footer .Iterations .Duration .CacheHit}}
`
}

type unchangedReport struct{}

func (unchangedReport) Template() string {
	return `{{header .Status .Label .Soul -}}
{{snippet .Before -}}
{{message .Message}}
`
}

type failedReport struct{}

func (failedReport) Template() string {
	return `{{header .Status .Label .Soul -}}
{{snippet .Before -}}
{{message .Message}}
`
}

// FormatResult renders one optimization result. label names the input, for
// example a file name.
func FormatResult(label string, res surgeon.Result) string {
	if res.Failed() {
		return render(failedReport{}, ReportData{
			Status:  "failed",
			Label:   label,
			Soul:    "-",
			Before:  termString(res.Original),
			Message: res.Err.Error(),
		})
	}

	data := ReportData{
		Label:        label,
		Soul:         res.Soul.String(),
		Before:       termString(res.Original),
		After:        termString(res.Transformed),
		Rules:        res.RulesApplied,
		InitialScore: res.InitialScore(),
		FinalScore:   res.FinalScore(),
		Change:       -100 * res.ImprovementRatio(),
		Iterations:   res.Iterations,
		Duration:     res.Duration,
		CacheHit:     res.CacheHit,
	}
	if !res.Changed() {
		data.Status = "unchanged"
		data.Message = "no safe improvement found"
		return render(unchangedReport{}, data)
	}
	data.Status = "improved"
	return render(improvedReport{}, data)
}

// FormatResults renders results in order, labeled by position.
func FormatResults(labels []string, results []surgeon.Result) string {
	var builder strings.Builder
	for i, res := range results {
		label := fmt.Sprintf("#%d", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		builder.WriteString(FormatResult(label, res))
	}
	return builder.String()
}

// FormatReport renders a verifier report for a against b.
func FormatReport(a, b ir.Term, report verify.Report) string {
	var builder strings.Builder
	switch report.Result {
	case verify.Equivalent:
		builder.WriteString(suggestionStyle.Sprint("equivalent: "))
	case verify.NotEquivalent:
		builder.WriteString(errorStyle.Sprint("not equivalent: "))
	default:
		builder.WriteString(warningStyle.Sprint("unknown: "))
	}
	builder.WriteString(ruleStyle.Sprintln(report.Reason))
	builder.WriteString(snippetLine("a", a.String()))
	builder.WriteString(snippetLine("b", b.String()))
	if report.Detail != "" {
		builder.WriteString(lineStyle.Sprint("  = "))
		builder.WriteString(noStyle.Sprintln(report.Detail))
	}
	return builder.String()
}

// FormatCanonical renders the canonical form and soul of t.
func FormatCanonical(t ir.Term) string {
	canonical := canon.Canonicalize(t)
	var builder strings.Builder
	builder.WriteString(snippetLine("input", t.String()))
	builder.WriteString(snippetLine("canonical", canonical.String()))
	builder.WriteString(lineStyle.Sprint("  = "))
	builder.WriteString(fileStyle.Sprintln(canon.SoulOfCanonical(canonical)))
	return builder.String()
}

func render(report reportTemplate, data ReportData) string {
	funcMap := template.FuncMap{
		"header":  header,
		"diff":    diff,
		"snippet": snippet,
		"score":   score,
		"rules":   rulesLine,
		"footer":  footer,
		"message": message,
	}
	tmpl := template.Must(template.New("report").Funcs(funcMap).Parse(report.Template()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting result: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(status, label, soul string) string {
	var endString string
	switch status {
	case "improved":
		endString = suggestionStyle.Sprint("improved: ")
	case "failed":
		endString = errorStyle.Sprint("failed: ")
	default:
		endString = warningStyle.Sprint("unchanged: ")
	}
	endString += ruleStyle.Sprintf("%s\n", label)
	endString += lineStyle.Sprint(" --> ")
	endString += fileStyle.Sprintf("%s\n", soul)
	return endString
}

func termString(t ir.Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func snippet(term string) string {
	endString := lineStyle.Sprint("  |\n")
	endString += lineStyle.Sprint("  | ") + noStyle.Sprintf("%s\n", term)
	return endString
}

func snippetLine(name, term string) string {
	return lineStyle.Sprintf("  %s | ", name) + noStyle.Sprintf("%s\n", term)
}

func diff(before, after string) string {
	endString := lineStyle.Sprint("  |\n")
	endString += lineStyle.Sprint("- | ") + removedStyle.Sprintf("%s\n", before)
	endString += lineStyle.Sprint("+ | ") + suggestionStyle.Sprintf("%s\n", after)
	endString += lineStyle.Sprint("  |\n")
	return endString
}

func score(initial, final, change float64) string {
	return lineStyle.Sprint("  = ") + noStyle.Sprintf("score %.2f -> %.2f (%+.1f%%)\n", initial, final, change)
}

func rulesLine(applied []string) string {
	return lineStyle.Sprint("  = ") + noStyle.Sprint("rules: ") + ruleStyle.Sprintf("%s\n", strings.Join(applied, ", "))
}

func footer(iterations int, d time.Duration, cacheHit bool) string {
	if cacheHit {
		return lineStyle.Sprint("  = ") + noStyle.Sprintf("verified, from proof cache in %s\n", d.Round(time.Microsecond))
	}
	return lineStyle.Sprint("  = ") + noStyle.Sprintf("verified after %d iterations in %s\n", iterations, d.Round(time.Microsecond))
}

func message(msg string) string {
	return lineStyle.Sprint("  = ") + noStyle.Sprintf("%s\n", msg)
}
