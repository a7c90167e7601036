package http

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/importer"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/store"
)

// bulkImportHandler promotes scraped candidates into catalog products.
// The whole batch always returns 200: per-item failures are reported in
// the errors list, not as an HTTP error.
func bulkImportHandler(c *fiber.Ctx) error {
	var reqBody BulkImportRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}
	if len(reqBody.ProductIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "product_ids must not be empty",
		})
	}

	coord := c.Locals("importer").(*importer.Coordinator)

	mods := importer.Modifications{}
	if reqBody.Modifications != nil {
		mods.Modification = importer.Modification{
			Category:         reqBody.Modifications.Category,
			Status:           reqBody.Modifications.Status,
			OverrideExisting: reqBody.Modifications.OverrideExisting,
		}
	}
	if len(reqBody.PerProduct) > 0 {
		mods.PerItem = make(map[string]importer.Modification, len(reqBody.PerProduct))
		for id, m := range reqBody.PerProduct {
			mods.PerItem[id] = importer.Modification{
				Category:         m.Category,
				Status:           m.Status,
				OverrideExisting: m.OverrideExisting,
			}
		}
	}

	res := coord.Import(c.Context(), reqBody.ProductIDs, mods)

	return c.JSON(BulkImportResponse{
		Success:  len(res.Errors) == 0,
		Imported: res.Imported,
		Errors:   itemErrors(res.Errors),
	})
}

// bulkDeleteHandler removes staged candidates. Like import, the batch
// always returns 200 with per-item outcomes.
func bulkDeleteHandler(c *fiber.Ctx) error {
	var reqBody BulkDeleteRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}
	if len(reqBody.ProductIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "product_ids must not be empty",
		})
	}

	coord := c.Locals("importer").(*importer.Coordinator)
	res := coord.Delete(c.Context(), reqBody.ProductIDs)

	return c.JSON(BulkDeleteResponse{
		Success: len(res.Errors) == 0,
		Deleted: res.Deleted,
		Errors:  itemErrors(res.Errors),
	})
}

// candidateListHandler lists scraped product candidates, optionally scoped
// to one job.
func candidateListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var jobID *uuid.UUID
	if raw := c.Query("job_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "invalid job_id",
			})
		}
		jobID = &id
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	list, err := st.ListScrapedProducts(c.Context(), jobID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "PRODUCT_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(CandidateListResponse{Success: true, Products: list})
}

// candidateDetailHandler returns one scraped product candidate.
func candidateDetailHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid product id",
		})
	}

	product, err := st.GetScrapedProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "product not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "PRODUCT_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(CandidateResponse{Success: true, Product: &product})
}

func itemErrors(in []importer.ItemError) []BulkItemError {
	out := make([]BulkItemError, 0, len(in))
	for _, e := range in {
		out = append(out, BulkItemError{ID: e.ID, Error: e.Error})
	}
	return out
}
