package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const fontFamily = "Helvetica"

// Options tunes PDF output.
type Options struct {
	// Compress enables stream compression. Tests turn it off so the text in
	// the content stream can be read back.
	Compress bool
	// FontDir is passed to gofpdf. Core fonts need none.
	FontDir string
}

// Renderer draws a Layout onto an A4 page.
type Renderer struct {
	opts Options
}

// NewRenderer builds Renderer instance.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Render produces the PDF bytes for l. Identical layouts render to identical
// bytes.
func (r *Renderer) Render(ctx context.Context, l Layout) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", r.opts.FontDir)
	pdf.SetCompression(r.opts.Compress)
	pdf.SetCreationDate(l.CreatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(l.DocumentTitle, true)
	pdf.SetCreator("billdesk", false)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetFooterFunc(func() {
		pdf.SetFont(fontFamily, "B", 9)
		pdf.SetXY(marginLeft, footerY)
		pdf.CellFormat(contentWidth, lineHeight, winAnsi(l.Footer), "T", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	d := &drawer{pdf: pdf}
	d.letterhead(l.Letterhead)
	d.title(l.Title)
	d.parties(l.Customer, l.Meta)
	d.centered(l.WorkOrderLine, "I", 10)
	d.items(l.Items)
	d.totals(l.Totals)
	d.words(l.AmountInWords)
	d.taxSummary(l.TaxHeaders, l.TaxValues)
	d.words(l.TaxInWords)
	d.accountAndSignature(l.Account, l.Signature)

	if pdf.Err() {
		return nil, fmt.Errorf("export: render: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: output: %w", err)
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf *gofpdf.Fpdf
}

func (d *drawer) font(style string, size float64) {
	d.pdf.SetFont(fontFamily, style, size)
}

// cell draws UTF-8 text. Text already converted with winAnsi goes through
// rawCell instead.
func (d *drawer) cell(w, h float64, text, border string, ln int, align string, fill bool) {
	d.rawCell(w, h, winAnsi(text), border, ln, align, fill)
}

func (d *drawer) rawCell(w, h float64, text, border string, ln int, align string, fill bool) {
	d.pdf.CellFormat(w, h, text, border, ln, align, fill, 0, "")
}

// image places img at y. An image gofpdf cannot decode is skipped.
func (d *drawer) image(img *Image, y float64) {
	if img == nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: img.Type}
	info := d.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	if info == nil || d.pdf.Err() {
		d.pdf.ClearError()
		return
	}
	d.pdf.ImageOptions(img.Name, img.X, y, img.W, img.H, false, opts, 0, "")
}

func (d *drawer) letterhead(lh Letterhead) {
	if lh.Logo != nil {
		d.image(lh.Logo, lh.Logo.Y)
	}

	d.pdf.SetXY(wordmarkX, marginTop+2)
	d.font("B", 22)
	d.pdf.SetTextColor(21, 67, 140)
	primaryWidth := d.pdf.GetStringWidth(winAnsi(lh.WordmarkPrimary + " "))
	d.cell(primaryWidth, 10, lh.WordmarkPrimary, "", 0, "L", false)
	d.pdf.SetTextColor(230, 126, 34)
	d.cell(0, 10, lh.WordmarkSecondary, "", 0, "L", false)
	d.pdf.SetTextColor(0, 0, 0)

	textWidth := contentWidth - (wordmarkX - marginLeft)
	y := marginTop + 14
	d.font("", 9)
	for _, line := range lh.AddressLines {
		d.pdf.SetXY(wordmarkX, y)
		d.cell(textWidth, 4.5, line, "", 0, "L", false)
		y += 4.5
	}
	if lh.Contact != "" {
		d.pdf.SetXY(wordmarkX, y)
		d.cell(textWidth, 4.5, lh.Contact, "", 0, "L", false)
	}

	d.pdf.SetLineWidth(0.4)
	d.pdf.Line(marginLeft, headerRuleY, pageWidth-marginRight, headerRuleY)
	d.pdf.SetLineWidth(0.2)
	d.pdf.SetXY(marginLeft, headerRuleY+3)
}

func (d *drawer) title(text string) {
	d.font("B", 14)
	d.cell(contentWidth, 8, text, "", 1, "C", false)
}

// parties draws the customer block on the left and the invoice references
// on the right, starting level with the customer name.
func (d *drawer) parties(customer []string, meta []Row) {
	top := d.pdf.GetY() + 2
	for i, line := range customer {
		style := ""
		if i == 1 {
			style = "B"
		}
		d.font(style, 10)
		d.pdf.SetXY(marginLeft, top+float64(i)*lineHeight)
		d.cell(customerWidth, lineHeight, line, "", 0, "L", false)
	}

	nameY := top + lineHeight
	const labelWidth = 24.0
	for i, row := range meta {
		y := nameY + float64(i)*lineHeight
		d.pdf.SetXY(metaX, y)
		d.font("B", 10)
		d.cell(labelWidth, lineHeight, row.Label+":", "", 0, "L", false)
		d.font("", 10)
		d.cell(metaWidth-labelWidth, lineHeight, row.Value, "", 0, "R", false)
	}

	bottom := max(top+float64(len(customer))*lineHeight, nameY+float64(len(meta))*lineHeight)
	d.pdf.SetXY(marginLeft, bottom+3)
}

func (d *drawer) centered(text, style string, size float64) {
	d.font(style, size)
	d.cell(contentWidth, 6, text, "", 1, "C", false)
	d.pdf.Ln(2)
}

func (d *drawer) itemHeader() {
	d.font("B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for i, h := range itemHeaders {
		d.cell(itemColumns[i], rowHeight, h, "1", 0, "C", true)
	}
	d.pdf.Ln(rowHeight)
}

var itemAlign = [6]string{"C", "L", "C", "R", "C", "R"}

func (d *drawer) items(rows []ItemRow) {
	d.itemHeader()
	d.font("", 9)
	for _, row := range rows {
		lines := d.pdf.SplitLines([]byte(winAnsi(row.Cells[1])), itemColumns[1]-2)
		h := max(rowHeight, float64(len(lines))*lineHeight+2)
		if d.pdf.GetY()+h > pageHeight-marginBottom {
			d.pdf.AddPage()
			d.itemHeader()
			d.font("", 9)
		}
		x, y := marginLeft, d.pdf.GetY()
		for col, text := range row.Cells {
			w := itemColumns[col]
			if col == 1 {
				d.pdf.Rect(x, y, w, h, "D")
				for k, line := range lines {
					d.pdf.SetXY(x+1, y+1+float64(k)*lineHeight)
					d.rawCell(w-2, lineHeight, string(line), "", 0, "L", false)
				}
			} else {
				d.pdf.SetXY(x, y)
				d.cell(w, h, text, "1", 0, itemAlign[col], false)
			}
			x += w
		}
		d.pdf.SetXY(marginLeft, y+h)
	}
}

func (d *drawer) totals(rows []Row) {
	labelWidth := 0.0
	for _, w := range itemColumns[:5] {
		labelWidth += w
	}
	valueWidth := itemColumns[5]
	for i, row := range rows {
		style := ""
		if i == len(rows)-1 {
			style = "B"
		}
		d.font(style, 9)
		d.cell(labelWidth, rowHeight, row.Label, "1", 0, "R", false)
		d.cell(valueWidth, rowHeight, row.Value, "1", 1, "R", false)
	}
}

func (d *drawer) words(text string) {
	d.pdf.Ln(2)
	d.font("B", 9)
	d.pdf.MultiCell(contentWidth, lineHeight, winAnsi(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *drawer) taxSummary(headers, values []string) {
	if len(headers) == 0 {
		return
	}
	w := contentWidth / float64(len(headers))
	d.font("B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for _, h := range headers {
		d.cell(w, rowHeight, h, "1", 0, "C", true)
	}
	d.pdf.Ln(rowHeight)
	d.font("", 9)
	for _, v := range values {
		d.cell(w, rowHeight, v, "1", 0, "R", false)
	}
	d.pdf.Ln(rowHeight)
}

func (d *drawer) accountAndSignature(account []Row, sig Signature) {
	d.pdf.Ln(4)
	blockHeight := float64(len(account)+1)*rowHeight + 2
	signatureHeight := rowHeight + stampHeight + 2*lineHeight + 2
	if d.pdf.GetY()+max(blockHeight, signatureHeight) > pageHeight-marginBottom {
		d.pdf.AddPage()
	}
	top := d.pdf.GetY()

	d.pdf.SetXY(marginLeft, top)
	d.font("B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	d.cell(accountLabelWidth+accountValueWidth, rowHeight, "Account Details", "1", 0, "C", true)
	for i, row := range account {
		d.pdf.SetXY(marginLeft, top+float64(i+1)*rowHeight)
		d.font("B", 9)
		d.cell(accountLabelWidth, rowHeight, row.Label, "1", 0, "L", false)
		d.font("", 9)
		d.cell(accountValueWidth, rowHeight, row.Value, "1", 0, "L", false)
	}

	d.pdf.SetXY(signatureX, top)
	d.font("B", 10)
	d.cell(signatureWidth, rowHeight, sig.For, "", 0, "C", false)
	d.image(sig.Stamp, top+rowHeight+1)
	nameY := top + rowHeight + stampHeight + 2
	d.pdf.SetXY(signatureX, nameY)
	d.font("", 10)
	d.cell(signatureWidth, lineHeight, sig.Name, "", 0, "C", false)
	d.pdf.SetXY(signatureX, nameY+lineHeight)
	d.font("B", 10)
	d.cell(signatureWidth, lineHeight, sig.Title, "", 0, "C", false)

	d.pdf.SetXY(marginLeft, top+max(blockHeight, signatureHeight))
}
