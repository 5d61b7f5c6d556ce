package invoice

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-solar/billdesk/internal/fiscal"
	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/storage"
)

// memoryInvoiceRepo mirrors the Postgres semantics the service relies on:
// transactions are serialized by the sequence row lock and a failed
// transaction rolls back its reservation.
type memoryInvoiceRepo struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	invoices  map[string]*Invoice
	sequences map[string]int
	clients   map[string]string
	// collisions makes the next inserts lose to a concurrent writer that
	// commits the same number first.
	collisions int
	nextID     int
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices:  map[string]*Invoice{},
		sequences: map[string]int{},
		clients:   map[string]string{},
	}
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	snapshot := maps.Clone(r.sequences)
	r.mu.Unlock()
	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.sequences = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryInvoiceRepo) lastSequenceLocked(fy string) int {
	last := r.sequences[fy]
	for _, inv := range r.invoices {
		if inv.FinancialYear != fy {
			continue
		}
		if _, seq, err := fiscal.ParseInvoiceNumber(inv.InvoiceNumber); err == nil {
			last = max(last, seq)
		}
	}
	return last
}

func (r *memoryInvoiceRepo) LastSequence(ctx context.Context, fy string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSequenceLocked(fy), nil
}

func (r *memoryInvoiceRepo) ReserveSequence(ctx context.Context, fy string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.lastSequenceLocked(fy) + 1
	r.sequences[fy] = next
	return next, nil
}

func (r *memoryInvoiceRepo) storeLocked(inv *Invoice) {
	r.nextID++
	inv.ID = fmt.Sprintf("inv-%d", r.nextID)
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.LineItems {
		inv.LineItems[i].ID = fmt.Sprintf("%s-line-%d", inv.ID, i+1)
	}
	stored := *inv
	r.invoices[inv.ID] = &stored
}

func (r *memoryInvoiceRepo) Insert(ctx context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collisions > 0 {
		r.collisions--
		r.storeLocked(&Invoice{InvoiceNumber: inv.InvoiceNumber, FinancialYear: inv.FinancialYear})
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.InvoiceNumber)
	}
	for _, existing := range r.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.InvoiceNumber)
		}
	}
	r.storeLocked(inv)
	return nil
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *memoryInvoiceRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if filter.FinancialYear != "" && inv.FinancialYear != filter.FinancialYear {
			continue
		}
		if filter.MissingDocument && inv.HasDocument() {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

func (r *memoryInvoiceRepo) AttachDocument(ctx context.Context, id, fileName, fileURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.FileName = fileName
	inv.FileURL = fileURL
	return nil
}

func (r *memoryInvoiceRepo) Delete(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return "", ErrNotFound
	}
	delete(r.invoices, id)
	return inv.FileName, nil
}

func (r *memoryInvoiceRepo) ClientName(ctx context.Context, clientID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.clients[clientID]
	if !ok {
		return "", ErrClientNotFound
	}
	return name, nil
}

type stubRenderer struct {
	err error
}

func (s *stubRenderer) RenderInvoice(ctx context.Context, inv *Invoice) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4\n% " + inv.InvoiceNumber + "\n%%EOF\n"), nil
}

type recordingRemover struct {
	removed []string
}

func (r *recordingRemover) Remove(ctx context.Context, fileName string) error {
	r.removed = append(r.removed, fileName)
	return nil
}

type recordingScheduler struct {
	scheduled []string
}

func (s *recordingScheduler) ScheduleInvoiceRender(ctx context.Context, invoiceID string) error {
	s.scheduled = append(s.scheduled, invoiceID)
	return nil
}

type fixture struct {
	repo      *memoryInvoiceRepo
	renderer  *stubRenderer
	store     *storage.Local
	remover   *recordingRemover
	scheduler *recordingScheduler
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), "/files", 1<<20)
	require.NoError(t, err)
	f := &fixture{
		repo:      newMemoryInvoiceRepo(),
		renderer:  &stubRenderer{},
		store:     store,
		remover:   &recordingRemover{},
		scheduler: &recordingScheduler{},
	}
	f.service = NewService(Deps{
		Repo:      f.repo,
		Renderer:  f.renderer,
		Store:     f.store,
		Remover:   f.remover,
		Scheduler: f.scheduler,
		Now:       func() time.Time { return time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC) },
	})
	return f
}

func validRequest() CreateRequest {
	return CreateRequest{
		InvoiceDate:        "2024-06-15",
		WorkOrderReference: "WO/2024/118",
		WorkOrderDate:      "2024-06-01",
		CompanyName:        "Sunrise Agro Pvt Ltd",
		AddressLine1:       "Plot 12, MIDC",
		City:               "Nashik",
		State:              "Maharashtra",
		Pin:                "422010",
		GSTNumber:          "27abcde1234f1z5",
		CGSTPercentage:     d("9"),
		SGSTPercentage:     d("9"),
		LineItems: []LineItemRequest{
			{Description: "Rooftop solar plant", HSNSACCode: "8541", Rate: d("42"), Quantity: d("5"), Unit: "kWp"},
		},
	}
}

func TestCreateInvoiceNumbersSequentiallyPerFinancialYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.service.NextNumber(ctx, "24-25")
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/001", next)

	first, err := f.service.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Empty(t, first.Warnings)
	assert.Equal(t, "AS/24-25/001", first.Invoice.InvoiceNumber)
	assert.Equal(t, "24-25", first.Invoice.FinancialYear)

	next, err = f.service.NextNumber(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/002", next)

	second, err := f.service.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/002", second.Invoice.InvoiceNumber)

	req := validRequest()
	req.InvoiceDate = "2025-04-02"
	other, err := f.service.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "AS/25-26/001", other.Invoice.InvoiceNumber)
}

func TestCreateInvoiceStoresComputedTotalsAndDocument(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.CreatedBy = "user-admin"

	result, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	inv := result.Invoice

	assert.Equal(t, "210000.00", inv.TotalBasicAmount.StringFixed(2))
	assert.Equal(t, "18900.00", inv.CGSTAmount.StringFixed(2))
	assert.Equal(t, "18900.00", inv.SGSTAmount.StringFixed(2))
	assert.Equal(t, "247800.00", inv.GrandTotal.StringFixed(2))
	assert.Equal(t, "Two Lakh Forty Seven Thousand Eight Hundred Rupees Only", inv.AmountInWords)
	assert.Equal(t, "27ABCDE1234F1Z5", inv.Customer.GSTNumber)
	assert.Equal(t, "Sunrise Agro Pvt Ltd", inv.ClientName)
	require.NotNil(t, inv.CreatedBy)
	assert.Equal(t, "user-admin", *inv.CreatedBy)
	require.NotNil(t, inv.WorkOrderDate)
	assert.Equal(t, "2024-06-01", inv.WorkOrderDate.Format(DateLayout))

	require.True(t, inv.HasDocument())
	assert.Equal(t, "/files/"+inv.FileName, inv.FileURL)
	stored, err := f.repo.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.FileName, stored.FileName)

	_, data, err := f.service.Document(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AS/24-25/001")
}

func TestCreateInvoiceReportsFieldErrors(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.WorkOrderReference = "  "
	req.CompanyName = ""
	req.AddressLine1 = ""
	req.FinancialYear = "2024"
	req.LineItems = []LineItemRequest{{Description: "", Rate: d("0"), Quantity: d("-2")}}

	_, err := f.service.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{
		"workOrderReference", "companyName", "addressLine1", "financialYear",
		"lineItems[0].description", "lineItems[0].rate", "lineItems[0].quantity",
	} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Empty(t, f.repo.invoices)

	req = validRequest()
	req.LineItems = nil
	_, err = f.service.Create(context.Background(), req)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "lineItems")

	req = validRequest()
	req.CGSTPercentage = d("120")
	_, err = f.service.Create(context.Background(), req)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "cgstPercentage")
}

func TestCreateInvoiceRejectsPrecisionBeyondStoredScale(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.CGSTPercentage = d("9.125")
	req.LineItems = []LineItemRequest{
		{Description: "Module", Rate: d("3.33335"), Quantity: d("1.5"), Unit: "kWp"},
		{Description: "Cable", Rate: d("0.25"), Quantity: d("2.00001"), Unit: "m"},
	}

	_, err := f.service.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must have at most 4 decimal places", verr.Fields["lineItems[0].rate"])
	assert.Equal(t, "must have at most 4 decimal places", verr.Fields["lineItems[1].quantity"])
	assert.Equal(t, "must have at most 2 decimal places", verr.Fields["cgstPercentage"])
	assert.NotContains(t, verr.Fields, "lineItems[0].quantity")
	assert.NotContains(t, verr.Fields, "sgstPercentage")
	assert.Empty(t, f.repo.invoices)

	// Trailing zeros beyond the scale are harmless.
	req = validRequest()
	req.LineItems[0].Rate = d("3.33330000")
	res, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "16666.50", res.Invoice.LineItems[0].Amount.StringFixed(2))
}

func TestCreateInvoiceWarnsWhenDocumentFails(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("font missing")

	result, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Invoice)
	assert.Equal(t, "AS/24-25/001", result.Invoice.InvoiceNumber)
	assert.False(t, result.Invoice.HasDocument())
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "font missing")
	assert.Equal(t, []string{result.Invoice.ID}, f.scheduler.scheduled)
	assert.Len(t, f.repo.invoices, 1)

	f.renderer.err = nil
	inv, err := f.service.RegenerateDocument(context.Background(), result.Invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.HasDocument())
	assert.Empty(t, f.remover.removed)
}

func TestRegenerateDocumentRemovesPreviousFile(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)
	previous := result.Invoice.FileName

	inv, err := f.service.RegenerateDocument(context.Background(), result.Invoice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, previous, inv.FileName)
	assert.Equal(t, []string{previous}, f.remover.removed)
}

func TestCreateInvoiceRetriesNumberCollisions(t *testing.T) {
	f := newFixture(t)
	f.repo.collisions = 2

	result, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/003", result.Invoice.InvoiceNumber)

	f.repo.collisions = maxAllocationAttempts
	_, err = f.service.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrNumberExhausted)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestNextNumberMatchesAllocationAfterDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var created []*Invoice
	for i := 0; i < 3; i++ {
		result, err := f.service.Create(ctx, validRequest())
		require.NoError(t, err)
		created = append(created, result.Invoice)
	}
	require.NoError(t, f.service.Delete(ctx, created[1].ID))

	preview, err := f.service.NextNumber(ctx, "24-25")
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/004", preview)

	next, err := f.service.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, preview, next.Invoice.InvoiceNumber)
}

func TestCreateInvoiceSkipsPastImportedNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.mu.Lock()
	f.repo.storeLocked(&Invoice{InvoiceNumber: "AS/24-25/001", FinancialYear: "24-25"})
	f.repo.storeLocked(&Invoice{InvoiceNumber: "AS/24-25/003", FinancialYear: "24-25"})
	f.repo.mu.Unlock()

	preview, err := f.service.NextNumber(ctx, "24-25")
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/004", preview)

	result, err := f.service.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "AS/24-25/004", result.Invoice.InvoiceNumber)
}

func TestConcurrentCreationNeverDuplicatesNumbers(t *testing.T) {
	f := newFixture(t)
	const workers = 20

	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.service.Create(context.Background(), validRequest())
			if err == nil {
				numbers <- result.Invoice.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for n := range numbers {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestCreateInvoiceLinksClient(t *testing.T) {
	f := newFixture(t)
	f.repo.clients["6f1c7a52-4a36-4d9e-9d51-0c6f8c3b2a10"] = "Sunrise Agro"

	req := validRequest()
	req.ClientID = "6f1c7a52-4a36-4d9e-9d51-0c6f8c3b2a10"
	result, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.Invoice.ClientID)
	assert.Equal(t, "Sunrise Agro", result.Invoice.ClientName)

	req.ClientID = "0d7f9a11-2b3c-4d5e-8f90-112233445566"
	_, err = f.service.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrClientNotFound)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteInvoiceRemovesDocument(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), result.Invoice.ID))
	assert.Equal(t, []string{result.Invoice.FileName}, f.remover.removed)

	_, err = f.service.Get(context.Background(), result.Invoice.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.service.Delete(context.Background(), result.Invoice.ID), ErrNotFound)
}

func TestDocumentRendersOnTheFlyWhenMissing(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("offline")
	result, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)

	f.renderer.err = nil
	_, data, err := f.service.Document(context.Background(), result.Invoice.ID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF")
	stored, _ := f.repo.Get(context.Background(), result.Invoice.ID)
	assert.False(t, stored.HasDocument())
}
