package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"sheaf/internal/services"
)

const defaultCompareTimeout = 60 * time.Second

const compareSystemPrompt = "You are a document comparison specialist for scanned tax form pages. " +
	"Given one primary page image and a set of candidate page images, decide for each candidate " +
	"whether it is a page of the same physical document as the primary (same form instance, same " +
	"taxpayer, same tax year). Matching form type alone is not sufficient. You must output your " +
	"response as a valid JSON array."

const compareInstructions = `For each candidate, produce a JSON object with exactly these keys:
- "documentId": the candidate's numeric id as given below.
- "matchFound": true only if the candidate is a page of the same physical document as the primary.
- "confidence": your confidence in the verdict, 0.0 to 1.0.
- "pageOrderHint": "before" if the candidate precedes the primary, "after" if it follows, or "" if unclear.
- "reasoning": one short sentence of evidence.

Return ONLY the JSON array, one object per candidate, in the order listed. Do not wrap it in markdown fences.`

// Config captures the runtime settings required to talk to Vertex AI.
type Config struct {
	ProjectID      string
	Region         string
	Model          string
	TimeoutSeconds int
}

// Vertex implements Service against a Vertex AI generative model.
type Vertex struct {
	cfg     Config
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// Option customizes the client.
type Option func(*Vertex)

// WithTimeout overrides the per-comparison deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(v *Vertex) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

// NewVertex constructs an oracle backed by Vertex AI.
func NewVertex(ctx context.Context, cfg Config, opts ...Option) (*Vertex, error) {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.Region = strings.TrimSpace(cfg.Region)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, services.Wrap(services.ErrConfiguration, "oracle", "new", "project id and region are required", nil)
	}
	if cfg.Model == "" {
		return nil, services.Wrap(services.ErrConfiguration, "oracle", "new", "model is required", nil)
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "oracle", "new", "create vertex client", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(compareSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	vertex := &Vertex{
		cfg:     cfg,
		client:  client,
		model:   model,
		timeout: defaultCompareTimeout,
	}
	if cfg.TimeoutSeconds > 0 {
		vertex.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(vertex)
	}
	return vertex, nil
}

// Compare sends one primary page and its candidates to the model and parses
// the per-candidate verdicts.
func (v *Vertex) Compare(ctx context.Context, primary PageImage, candidates []PageImage, meta []CandidateMeta) ([]Verdict, error) {
	if len(primary.Data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "oracle", "compare", "primary page has no image data", nil)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) != len(meta) {
		return nil, services.Wrap(services.ErrValidation, "oracle", "compare",
			fmt.Sprintf("candidate count %d does not match meta count %d", len(candidates), len(meta)), nil)
	}

	parts := make([]genai.Part, 0, 2*len(candidates)+3)
	parts = append(parts, genai.Text(buildComparePrompt(primary, meta)))
	parts = append(parts, genai.Text("Primary page:"))
	parts = append(parts, pagePart(primary))
	for i, candidate := range candidates {
		parts = append(parts, genai.Text(fmt.Sprintf("Candidate %d (documentId %d):", i+1, meta[i].DocumentID)))
		parts = append(parts, pagePart(candidate))
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "oracle", "compare", "generate content", err)
	}
	payload := extractText(resp)
	if payload == "" {
		return nil, services.Wrap(services.ErrExternalTool, "oracle", "compare", "model returned empty response", nil)
	}
	verdicts, err := decodeVerdicts(payload, meta)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "oracle", "compare", "parse verdicts", err)
	}
	return verdicts, nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func pagePart(page PageImage) genai.Part {
	mime := page.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return genai.Blob{MIMEType: mime, Data: page.Data}
}

func buildComparePrompt(primary PageImage, meta []CandidateMeta) string {
	var b strings.Builder
	b.WriteString(compareInstructions)
	b.WriteString("\n\nPrimary documentId ")
	fmt.Fprintf(&b, "%d.\n\nCandidates:\n", primary.DocumentID)
	for i, m := range meta {
		fmt.Fprintf(&b, "%d. documentId %d", i+1, m.DocumentID)
		if m.FormType != "" {
			fmt.Fprintf(&b, ", classified as %q", m.FormType)
		}
		if m.OwnerName != "" {
			fmt.Fprintf(&b, ", owner %q", m.OwnerName)
		}
		if m.Grouped {
			b.WriteString(", representative page of an existing group")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
