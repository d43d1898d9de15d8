package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// billScanPrompt builds the instruction sent to the model alongside the
// bill image. The allowed categories are spelled out in the prompt; the
// response schema carries them again for providers that support one.
func billScanPrompt(categories []string) string {
	return fmt.Sprintf(`Analyze the provided image of a receipt or bill. Extract the following information:
1. Vendor name
2. Total amount (as a number, without currency symbols)
3. Date of the transaction (in YYYY-MM-DD format)

After extracting the details, categorize the expense into one of the following user-defined categories: %s.

The category should be the most logical fit based on the vendor and items (if visible).
Return ONLY a JSON object with the keys "vendor", "amount", "date" and "category".
Do not include any text before or after the JSON and do not use markdown code blocks.`, strings.Join(categories, ", "))
}

// pdfToImage renders the first page of a PDF as PNG. Bills are almost
// always single page.
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG re-encodes any supported image format as PNG. HEIC/HEIF
// (iPhone photos) needs its own decoder; Go's image package does not
// register one.
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEIC(imageData, mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image (supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC reports whether the payload looks like a HEIC/HEIF file, by MIME
// type or by the ftyp box brand at offset 4.
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// prepareBillImage normalizes a bill payload to PNG. PDFs are rendered,
// everything else is decoded and re-encoded. The returned data is always
// PNG regardless of the declared content type.
func prepareBillImage(imageData []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, nil
	}

	if mimeType != "image/png" || isHEIC(imageData, mimeType) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, nil
	}

	return imageData, nil
}

// validateScanInput enforces the local preconditions shared by all
// providers: a non-empty payload and a non-empty category list.
func validateScanInput(imageData []byte, categories []string) error {
	if len(imageData) == 0 {
		return ErrEmptyImage
	}
	if len(categories) == 0 {
		return ErrNoCategories
	}
	return nil
}
