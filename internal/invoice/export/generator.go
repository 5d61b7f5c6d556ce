package export

import (
	"context"
	"fmt"

	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/settings"
)

// ProfileSource supplies the company profile and its branding images.
type ProfileSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Image(ctx context.Context, s *settings.Settings, kind settings.ImageKind) ([]byte, error)
}

// Generator renders stored invoices with the current company profile.
type Generator struct {
	profile  ProfileSource
	renderer *Renderer
}

// NewGenerator builds Generator instance.
func NewGenerator(profile ProfileSource, renderer *Renderer) *Generator {
	return &Generator{profile: profile, renderer: renderer}
}

// RenderInvoice implements invoice.DocumentRenderer.
func (g *Generator) RenderInvoice(ctx context.Context, inv *invoice.Invoice) ([]byte, error) {
	s, err := g.profile.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: load settings: %w", err)
	}
	logo, err := g.profile.Image(ctx, s, settings.ImageLogo)
	if err != nil {
		return nil, fmt.Errorf("export: load logo: %w", err)
	}
	stamp, err := g.profile.Image(ctx, s, settings.ImageStamp)
	if err != nil {
		return nil, fmt.Errorf("export: load stamp: %w", err)
	}
	return g.renderer.Render(ctx, BuildLayout(inv, s, Assets{Logo: logo, Stamp: stamp}))
}

var _ invoice.DocumentRenderer = (*Generator)(nil)
