package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

// expenseSchema builds the structured output schema for one scan request.
// The category list changes between requests, so the schema is built per
// call rather than configured once on the model.
func expenseSchema(categories []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"vendor": {
				Type:        genai.TypeString,
				Description: "The name of the store or vendor.",
			},
			"amount": {
				Type:        genai.TypeNumber,
				Description: "The total amount of the bill as a number.",
			},
			"date": {
				Type:        genai.TypeString,
				Description: "The date of the transaction in YYYY-MM-DD format.",
			},
			"category": {
				Type:        genai.TypeString,
				Description: fmt.Sprintf("The most appropriate category from the provided list: %s", strings.Join(categories, ", ")),
			},
		},
		Required: []string{"vendor", "amount", "date", "category"},
	}
}

// ExtractBill analyzes a bill and extracts an expense record
func (g *Gemini) ExtractBill(imageData []byte, contentType string, categories []string) (*BillData, error) {
	if err := validateScanInput(imageData, categories); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pngData, err := prepareBillImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	model := g.client.GenerativeModel(g.modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = expenseSchema(categories)

	// genai.ImageData expects just the format suffix ("png"), not the full
	// MIME type. prepareBillImage guarantees PNG.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(billScanPrompt(categories)),
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	data, err := parseBillJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing bill data: %w", err)
	}

	return data, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
