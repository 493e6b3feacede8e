// Package report renders aggregated results into one pseudo-markdown text
// report. Rendering is pure: no I/O beyond the writer, no input mutation,
// byte-identical output for identical inputs and clock value.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/avezina/roundup/internal/aggregate"
	"github.com/avezina/roundup/internal/client"
	"github.com/avezina/roundup/internal/privacy"
)

const shortIDLen = 8

// Options tunes the rendering.
type Options struct {
	// BodyLimits caps issue/PR body length (in runes) per client name.
	// A zero or missing entry leaves bodies untruncated.
	BodyLimits map[string]int

	// Redact patterns are applied to every body before rendering.
	Redact []*regexp.Regexp
}

// Render writes the full report: a header block, then one section per
// result in declaration order. Failed clients render an explicit error line
// instead of items, never a silent gap.
func Render(w io.Writer, results []aggregate.Result, now time.Time, opts Options) error {
	fmt.Fprintf(w, "# Initialized %d clients\n", len(results))
	fmt.Fprintf(w, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintln(w, "Clients:")
	for _, res := range results {
		fmt.Fprintf(w, "- %s\n", res.Name)
	}
	fmt.Fprintln(w)

	for _, res := range results {
		renderSection(w, res, now, opts)
	}

	return nil
}

func renderSection(w io.Writer, res aggregate.Result, now time.Time, opts Options) {
	fmt.Fprintf(w, "# %s\n\n", res.Name)

	if res.Err != nil {
		fmt.Fprintf(w, "Error: %v\n\n---\n\n", res.Err)
		return
	}

	bodyLimit := opts.BodyLimits[res.Name]

	inLog := false
	closeLog := func() {
		if inLog {
			fmt.Fprint(w, "```\n\n---\n\n")
			inLog = false
		}
	}

	for _, item := range res.Items {
		switch v := item.(type) {
		case client.Issue:
			closeLog()
			renderIssue(w, v, now, bodyLimit, opts.Redact)
		case client.Message:
			if !inLog {
				fmt.Fprint(w, "```log\n")
				inLog = true
			}
			renderMessage(w, v, opts.Redact)
		case client.Failure:
			closeLog()
			renderFailure(w, v)
		}
	}
	closeLog()
}

func renderIssue(w io.Writer, issue client.Issue, now time.Time, bodyLimit int, redact []*regexp.Regexp) {
	fmt.Fprintf(w, "## %s: %d - %s\n\n", issue.Kind, issue.Number, issue.Title)
	fmt.Fprintf(w, "- Author:\t`%s`\n", issue.Author)
	fmt.Fprintf(w, "- URL:\t%s\n", issue.URL)
	fmt.Fprintf(w, "- Created:\t`%s`\n", daysAgo(now, issue.CreatedAt))
	fmt.Fprintf(w, "- Updated:\t`%s`\n", daysAgo(now, issue.UpdatedAt))
	fmt.Fprintln(w)

	body := issue.Body
	if strings.TrimSpace(body) == "" {
		body = "```\nNo body\n```"
	} else {
		body = privacy.Apply(body, redact)
		if bodyLimit > 0 {
			body = firstNRunes(body, bodyLimit)
		}
	}
	fmt.Fprintf(w, "%s\n\n---\n\n", body)
}

func renderMessage(w io.Writer, msg client.Message, redact []*regexp.Regexp) {
	sender := msg.Sender
	if msg.DisplayName != "" {
		sender = fmt.Sprintf("%s (%s)", msg.DisplayName, msg.Sender)
	}

	var annotations strings.Builder
	if msg.ThreadRoot != "" {
		fmt.Fprintf(&annotations, " (Th: %s)", shortID(msg.ThreadRoot))
	}
	if msg.ReplyTo != "" {
		fmt.Fprintf(&annotations, " (Re: %s)", shortID(msg.ReplyTo))
	}

	fmt.Fprintf(w, "[%s] (%s) <%s>%s: %s\n",
		msg.SentAt.Format("15:04:05"),
		shortID(msg.EventID),
		sender,
		annotations.String(),
		privacy.Apply(msg.Body, redact))
}

func renderFailure(w io.Writer, f client.Failure) {
	fmt.Fprintf(w, "## ERROR: %s\n\n", shortID(f.Ref))
	fmt.Fprintf(w, "- Reason:\t`%s`\n\n---\n\n", f.Cause)
}

// daysAgo renders the whole-day difference between now and t, in the
// "N days ago: YYYY-MM-DD" form the report uses for created/updated lines.
func daysAgo(now, t time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	return fmt.Sprintf("%d days ago: %s", days, t.Format("2006-01-02"))
}

// shortID compacts an event identifier like "$abcdef123456:server" to its
// first 8 hash characters. Short identifiers pass through unchanged.
func shortID(id string) string {
	if i := strings.LastIndex(id, "$"); i >= 0 {
		id = id[i+1:]
	}
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return id
}

// firstNRunes truncates s to at most n runes without splitting one.
func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
