package ai

import (
	"context"

	"memoai-go/internal/llm"
	"memoai-go/internal/notion"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Fallback messages shown when the model output is unusable. The UI speaks
// Japanese, matching the rest of the product copy.
const (
	msgEmptyResponse  = "AIから有効な応答が得られませんでした。"
	msgUnparseable    = "AIの応答を解析できませんでした。"
	msgPropsExtracted = "プロパティを抽出しました。"
	msgDone           = "（応答完了）"
)

// Generator is the slice of llm.Client the analyzer needs.
type Generator interface {
	Generate(ctx context.Context, modelID string, prompt llm.Prompt) (*llm.Result, error)
}

// ModelSelector picks a model for a request.
type ModelSelector interface {
	SelectForInput(hasImage bool, userSelection string) (string, error)
}

// Analyzer turns free-form user input into Notion-ready properties.
type Analyzer struct {
	gen      Generator
	selector ModelSelector
}

func NewAnalyzer(gen Generator, selector ModelSelector) *Analyzer {
	return &Analyzer{gen: gen, selector: selector}
}

// AnalyzeRequest is one data-entry analysis call.
type AnalyzeRequest struct {
	Text         string
	Schema       notion.Schema
	Examples     []gjson.Result
	SystemPrompt string
	Model        string // explicit user selection, optional
}

// AnalyzeResult carries validated properties plus accounting metadata.
// FallbackErr is set when the model failed and only a title was derived.
type AnalyzeResult struct {
	Properties  []byte    `json:"properties"`
	Usage       llm.Usage `json:"usage"`
	CostUSD     float64   `json:"cost"`
	Model       string    `json:"model"`
	FallbackErr string    `json:"error,omitempty"`
}

// AnalyzeText runs the one-shot data-entry analysis. Model failures degrade
// to a title-only property set instead of an error.
func (a *Analyzer) AnalyzeText(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	modelID, err := a.selector.SelectForInput(false, req.Model)
	if err != nil {
		return nil, err
	}

	prompt := ConstructPrompt(req.Text, req.Schema, req.Examples, req.SystemPrompt)
	res, err := a.gen.Generate(ctx, modelID, llm.Prompt{System: req.SystemPrompt, Text: prompt})
	if err != nil {
		logrus.WithError(err).WithField("model", modelID).Error("ai analysis failed, falling back to title")
		return &AnalyzeResult{
			Properties:  titleOnlyProperties(req.Schema, req.Text),
			Model:       modelID,
			FallbackErr: err.Error(),
		}, nil
	}

	return &AnalyzeResult{
		Properties: ValidateAndFixJSON(res.Content, req.Schema),
		Usage:      res.Usage,
		CostUSD:    res.CostUSD,
		Model:      res.Model,
	}, nil
}

// ChatRequest is one conversational analysis call.
type ChatRequest struct {
	Text          string
	Schema        notion.Schema
	SystemPrompt  string
	History       []Turn
	ImageBase64   string
	ImageMIMEType string
	Model         string
}

// ChatResult is the structured chat answer.
type ChatResult struct {
	Message     string    `json:"message"`
	RefinedText string    `json:"refined_text,omitempty"`
	Properties  []byte    `json:"properties,omitempty"`
	Usage       llm.Usage `json:"usage"`
	CostUSD     float64   `json:"cost"`
	Model       string    `json:"model"`
	RawResponse string    `json:"raw_response,omitempty"`
}

// ChatAnalyze runs the conversational flow, with optional image input.
func (a *Analyzer) ChatAnalyze(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	hasImage := req.ImageBase64 != "" && req.ImageMIMEType != ""
	modelID, err := a.selector.SelectForInput(hasImage, req.Model)
	if err != nil {
		return nil, err
	}

	promptText := ConstructChatPrompt(req.Text, req.Schema, req.SystemPrompt, req.History)
	if hasImage {
		promptText += "\n\n[IMPORTANT: The user has attached an image. Please analyze the image content and respond based on what you see in the image.]"
	}

	res, err := a.gen.Generate(ctx, modelID, llm.Prompt{
		System:        req.SystemPrompt,
		Text:          promptText,
		ImageBase64:   req.ImageBase64,
		ImageMIMEType: req.ImageMIMEType,
	})
	if err != nil {
		return nil, err
	}

	out := parseChatResponse(res.Content, req.Schema)
	out.Usage = res.Usage
	out.CostUSD = res.CostUSD
	out.Model = res.Model
	return out, nil
}

// parseChatResponse decodes the model's JSON answer, tolerating arrays,
// missing message fields and bare schema keys outside a properties wrapper.
func parseChatResponse(content string, schema notion.Schema) *ChatResult {
	data, ok := parseModelJSON(content)
	if !ok {
		return &ChatResult{Message: msgUnparseable, RawResponse: content}
	}
	if data.IsArray() {
		items := data.Array()
		if len(items) > 0 && items[0].IsObject() {
			data = items[0]
		} else {
			return &ChatResult{Message: msgEmptyResponse}
		}
	}
	if !data.IsObject() || len(data.Map()) == 0 {
		return &ChatResult{Message: msgEmptyResponse}
	}

	out := &ChatResult{
		Message:     data.Get("message").String(),
		RefinedText: data.Get("refined_text").String(),
	}

	// Collect properties: the declared wrapper first, then bare schema keys
	// the model emitted at the top level.
	props := data.Get("properties")
	rawProps := ""
	if props.IsObject() && len(props.Map()) > 0 {
		rawProps = props.Raw
	} else {
		bare := []byte(`{}`)
		found := false
		data.ForEach(func(key, val gjson.Result) bool {
			if _, known := schema[key.String()]; known {
				bare, _ = sjson.SetRawBytes(bare, notion.EscapePath(key.String()), []byte(val.Raw))
				found = true
			}
			return true
		})
		if found {
			rawProps = string(bare)
		}
	}
	if rawProps != "" {
		validated := ValidateAndFixJSON(rawProps, schema)
		if string(validated) != `{}` {
			out.Properties = validated
		}
	}

	if out.Message == "" {
		out.Message = fallbackMessage(out, data)
	}
	return out
}

func fallbackMessage(out *ChatResult, data gjson.Result) string {
	if out.RefinedText != "" {
		return "タスク名を「" + out.RefinedText + "」に提案します。"
	}
	if title := data.Get("Title").String(); title != "" {
		return "内容を整理しました: " + title
	}
	if len(out.Properties) > 0 {
		return msgPropsExtracted
	}
	return msgDone
}

// titleOnlyProperties derives the degraded result used when the model fails:
// the raw input as the schema's title property.
func titleOnlyProperties(schema notion.Schema, text string) []byte {
	key := schema.TitleKey()
	if key == "" {
		return []byte(`{}`)
	}
	out, _ := sjson.SetBytes([]byte(`{}`), notion.EscapePath(key)+".title.0.text.content", text)
	return out
}
