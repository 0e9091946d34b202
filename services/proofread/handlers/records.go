// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/middleware"
	"github.com/AleutianAI/AleutianProofread/services/proofread/observability"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/gin-gonic/gin"
)

// ListRecords serves GET /api/records?limit=N, newest first.
func ListRecords(d *Deps) gin.HandlerFunc {
	const endpoint = observability.EndpointRecordsList

	return func(c *gin.Context) {
		limit := records.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				d.fail(c, endpoint, http.StatusBadRequest, observability.ErrorCodeValidation,
					"limit must be a positive integer")
				return
			}
			limit = n
		}

		list, err := d.Store.List(c.Request.Context(), limit)
		if err != nil {
			middleware.Logger(c).Error("Failed to list records", "error", err)
			d.fail(c, endpoint, http.StatusInternalServerError, observability.ErrorCodeInternal, "internal server error")
			return
		}
		d.succeed(c, endpoint, datatypes.RecordListResponse{Records: list, Count: len(list)})
	}
}

// GetRecord serves GET /api/records/:id.
func GetRecord(d *Deps) gin.HandlerFunc {
	const endpoint = observability.EndpointRecordGet

	return func(c *gin.Context) {
		rec, err := d.Store.Get(c.Request.Context(), c.Param("id"))
		switch {
		case errors.Is(err, records.ErrNotFound):
			d.fail(c, endpoint, http.StatusNotFound, observability.ErrorCodeNotFound, "record not found")
		case err != nil:
			middleware.Logger(c).Error("Failed to read record", "id", c.Param("id"), "error", err)
			d.fail(c, endpoint, http.StatusInternalServerError, observability.ErrorCodeInternal, "internal server error")
		default:
			d.succeed(c, endpoint, rec)
		}
	}
}

// DeleteRecord serves DELETE /api/records/:id with 204 on success.
func DeleteRecord(d *Deps) gin.HandlerFunc {
	const endpoint = observability.EndpointRecordDelete

	return func(c *gin.Context) {
		err := d.Store.Delete(c.Request.Context(), c.Param("id"))
		switch {
		case errors.Is(err, records.ErrNotFound):
			d.fail(c, endpoint, http.StatusNotFound, observability.ErrorCodeNotFound, "record not found")
		case err != nil:
			middleware.Logger(c).Error("Failed to delete record", "id", c.Param("id"), "error", err)
			d.fail(c, endpoint, http.StatusInternalServerError, observability.ErrorCodeInternal, "internal server error")
		default:
			if d.Metrics != nil {
				d.Metrics.RecordSuccess(endpoint)
			}
			c.Status(http.StatusNoContent)
		}
	}
}
