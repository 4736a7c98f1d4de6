// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// promptAbstractLength caps each abstract quoted in a prompt.
const promptAbstractLength = 300

const routerSystem = "You are a research query router. Classify the query and extract keywords. " +
	"Respond only with valid JSON, no markdown."

const synthesizerSystem = "You are a scientific research synthesizer. Write a clear, structured narrative " +
	"synthesis of the provided papers. Group findings by theme. Use inline citations " +
	"in the format [Author et al., Year]. Aim for 400-600 words."

const contradictionSystem = `You are a scientific contradiction detector. Given research paper abstracts, identify claims that directly contradict each other.
Return ONLY valid JSON, with no markdown and no explanation:
{"contradictions": [{"claim_a": "...", "claim_b": "...", "paper_a_title": "...", "paper_b_title": "...", "severity": "high|medium|low", "topic": "..."}]}
If no contradictions are found, return {"contradictions": []}.`

const hypothesisSystem = `You are a scientific hypothesis generator. Generate exactly 3 novel, testable research hypotheses.
Return ONLY valid JSON, with no markdown and no explanation:
{"hypotheses": [
  {
    "hypothesis": "...",
    "rationale": "...",
    "confidence": 0.0,
    "novelty": "high|medium|low",
    "suggested_method": "...",
    "supporting_papers": ["title1", "title2"]
  }
]}
confidence must be a float between 0.0 and 1.0.`

var promptFuncs = template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"authors":  citeAuthors,
	"year":     citeYear,
	"abstract": func(s string) string { return truncateRunes(s, promptAbstractLength) },
	"upper":    func(s types.Severity) string { return strings.ToUpper(string(s)) },
}

var routerPromptTmpl = template.Must(template.New("router").Parse(`Query: {{.Query}}

Return exactly this JSON:
{"routing": "<decision>", "keywords": ["kw1", "kw2", "kw3"]}

routing values:
- "arxiv_only"   : pure math, physics, CS theory, preprints
- "semantic_only": medicine, clinical, biology, social science
- "both"         : general ML/NLP, interdisciplinary, or uncertain

keywords: 3-5 specific technical terms from the query`))

var synthesizerPromptTmpl = template.Must(template.New("synthesizer").Funcs(promptFuncs).Parse(`Synthesize the following research papers:
{{range $i, $p := .Papers}}
{{inc $i}}. **{{$p.Title}}** ({{authors $p.Authors}}, {{year $p.Year}})
   {{abstract $p.Abstract}}
{{end}}
Write a 400-600 word synthesis grouping papers by theme. Use inline citations like [Author et al., Year].`))

var contradictionPromptTmpl = template.Must(template.New("contradiction").Funcs(promptFuncs).Parse(`Identify contradictions between claims in these papers:
{{range $i, $p := .Papers}}
{{inc $i}}. **{{$p.Title}}** ({{year $p.Year}})
   {{abstract $p.Abstract}}
{{end}}`))

var hypothesisPromptTmpl = template.Must(template.New("hypothesis").Funcs(promptFuncs).Parse(`## Research Synthesis
{{.Synthesis}}
{{if .Contradictions}}
## Identified Contradictions
{{range .Contradictions}}- [{{upper .Severity}}] {{.ClaimA}} vs {{.ClaimB}} (Topic: {{.Topic}})
{{end}}{{end}}
Based on the synthesis and contradictions above, generate exactly 3 novel research hypotheses that could meaningfully advance this field.`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// citeAuthors returns the first two authors, adding "et al." when there are more.
func citeAuthors(authors []string) string {
	if len(authors) <= 2 {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:2], ", ") + " et al."
}

func citeYear(year int) string {
	if year == 0 {
		return "n.d."
	}
	return strconv.Itoa(year)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
