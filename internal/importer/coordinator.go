package importer

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// CandidateStore is the slice of the store the coordinator reads staged
// candidates from.
type CandidateStore interface {
	GetScrapedProductByID(ctx context.Context, id uuid.UUID) (model.ScrapedProduct, error)
	DeleteScrapedProductByID(ctx context.Context, id uuid.UUID) (bool, error)
	MarkScrapedProductImported(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CatalogStore commits catalog products.
type CatalogStore interface {
	InsertProduct(ctx context.Context, p *model.Product, override bool) error
}

// Modification is a set of adjustments applied to a candidate while
// importing it into the catalog.
type Modification struct {
	Category         string `json:"category,omitempty"`
	Status           string `json:"status,omitempty"`
	OverrideExisting *bool  `json:"override_existing,omitempty"`
}

// Modifications applies globally to every candidate in the batch unless a
// per-item entry (keyed by candidate id) overrides it.
type Modifications struct {
	Modification
	PerItem map[string]Modification `json:"per_item,omitempty"`
}

func (m Modifications) forItem(id string) Modification {
	mod := m.Modification
	item, ok := m.PerItem[id]
	if !ok {
		return mod
	}
	if item.Category != "" {
		mod.Category = item.Category
	}
	if item.Status != "" {
		mod.Status = item.Status
	}
	if item.OverrideExisting != nil {
		mod.OverrideExisting = item.OverrideExisting
	}
	return mod
}

// ItemError records one failed id inside a bulk operation.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ImportResult aggregates per-item outcomes of a bulk import. The
// invariant len(Imported)+len(Errors) == len(ids) always holds.
type ImportResult struct {
	Imported []string    `json:"imported"`
	Errors   []ItemError `json:"errors"`
}

// DeleteResult aggregates per-item outcomes of a bulk delete.
type DeleteResult struct {
	Deleted []string    `json:"deleted"`
	Errors  []ItemError `json:"errors"`
}

// Coordinator promotes staged candidates into catalog products and removes
// staged candidates, one item at a time so a failure never aborts the rest
// of the batch.
type Coordinator struct {
	candidates CandidateStore
	catalog    CatalogStore
	logger     *slog.Logger
}

func NewCoordinator(candidates CandidateStore, catalog CatalogStore, logger *slog.Logger) *Coordinator {
	return &Coordinator{candidates: candidates, catalog: catalog, logger: logger}
}

// Import copies each candidate into the catalog with the modifications
// applied. Candidates themselves are left in place (only stamped with an
// import timestamp); removing them is an explicit separate action.
func (c *Coordinator) Import(ctx context.Context, ids []string, mods Modifications) ImportResult {
	result := ImportResult{Imported: []string{}, Errors: []ItemError{}}

	for _, rawID := range ids {
		id, err := uuid.Parse(rawID)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: rawID, Error: "invalid candidate id"})
			continue
		}

		if err := c.ImportOne(ctx, id, mods.forItem(rawID)); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: rawID, Error: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, rawID)
	}

	return result
}

// ImportOne promotes a single candidate. The orchestrator uses this
// directly for the auto_import setting.
func (c *Coordinator) ImportOne(ctx context.Context, id uuid.UUID, mod Modification) error {
	cand, err := c.candidates.GetScrapedProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("candidate not found")
		}
		return err
	}

	status := mod.Status
	if status == "" {
		status = "draft"
	}
	override := mod.OverrideExisting != nil && *mod.OverrideExisting

	product := &model.Product{
		ID:          uuid.New(),
		Title:       cand.Title,
		Description: cand.Description,
		Price:       cand.Price,
		Images:      cand.Images,
		Brand:       cand.Brand,
		Category:    mod.Category,
		Status:      status,
		SourceURL:   cand.SourceURL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.catalog.InsertProduct(ctx, product, override); err != nil {
		return err
	}

	if err := c.candidates.MarkScrapedProductImported(ctx, id, time.Now().UTC()); err != nil && c.logger != nil {
		c.logger.Warn("failed to stamp candidate as imported", "candidate_id", id, "error", err)
	}
	return nil
}

// Delete removes each staged candidate independently; unknown ids become
// per-item errors rather than failing the batch.
func (c *Coordinator) Delete(ctx context.Context, ids []string) DeleteResult {
	result := DeleteResult{Deleted: []string{}, Errors: []ItemError{}}

	for _, rawID := range ids {
		id, err := uuid.Parse(rawID)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: rawID, Error: "invalid candidate id"})
			continue
		}

		deleted, err := c.candidates.DeleteScrapedProductByID(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: rawID, Error: err.Error()})
			continue
		}
		if !deleted {
			result.Errors = append(result.Errors, ItemError{ID: rawID, Error: "candidate not found"})
			continue
		}
		result.Deleted = append(result.Deleted, rawID)
	}

	return result
}
