/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */
package in

import (
	"errors"
	adapterentities "tier-scanner/adapters/entities"
	"tier-scanner/common"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services"
	"tier-scanner/logging"

	"github.com/gofiber/fiber/v2"
)

const (
	errScanInProgress   = "scan in progress"
	errScanIsWaiting    = "scan is waiting"
	errInvalidFileID    = "invalid file id"
	errCouldNotGetScan  = "could not get scan result"
	errCouldNotGetFile  = "could not get file history"
	errCouldNotGetQueue = "could not get queue status"
)

type ResultController struct {
	queryService services.QueryService
	logger       logging.Logger
}

func NewResultController(queryService services.QueryService, logger logging.Logger) ResultController {
	return ResultController{queryService: queryService, logger: logger}
}

// GetResult
// @Summary		Get the aggregated result of a scan
// @Tags		scans
// @Produce		json
// @Param		id	path	string	true	"Job id returned by the submission endpoint"
// @Success		102 {object} adapterentities.ScanResponse
// @Success		200 {object} adapterentities.ScanResponse
// @Failure		400 {object} adapterentities.ScanResponse
// @Failure		404 {object} adapterentities.ScanResponse
// @Failure		500 {object} adapterentities.ScanResponse
// @Security	ApiKey
// @Router      /scans/{id} [get]
func (r *ResultController) GetResult(c *fiber.Ctx) error {
	var response adapterentities.ScanResponse

	jobID, ok := scanID(c)
	if !ok {
		response.Error = errInvalidScanID
		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	result, err := r.queryService.GetResult(c.UserContext(), jobID)

	switch {
	case errors.Is(err, services.ErrScanIDNotFound):
		response.Error = errScanIDNotFound
		return c.Status(fiber.StatusNotFound).JSON(response)

	case errors.Is(err, services.ErrScanInProgress):
		response.Error = errScanInProgress
		return c.Status(fiber.StatusProcessing).JSON(response)

	case errors.Is(err, services.ErrScanIsWaiting):
		response.Error = errScanIsWaiting
		return c.Status(fiber.StatusProcessing).JSON(response)

	case err != nil:
		r.logger.Errorw("Failed to get scan result", "error", err, "jobId", jobID)
		response.Error = errCouldNotGetScan

		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}

	response.Result = &result

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetFileHistory
// @Summary		List every scan of a file, most recent first
// @Tags		files
// @Produce		json
// @Param		id	path	string	true	"File id used at submission"
// @Success		200 {object} adapterentities.HistoryResponse
// @Failure		400 {object} adapterentities.HistoryResponse
// @Failure		500 {object} adapterentities.HistoryResponse
// @Security	ApiKey
// @Router      /files/{id}/history [get]
func (r *ResultController) GetFileHistory(c *fiber.Ctx) error {
	response := adapterentities.HistoryResponse{Results: []entities.AggregatedResult{}}

	fileID := c.Params("id")
	if fileID == "" {
		response.Error = errInvalidFileID
		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	response.FileID = fileID

	results, err := r.queryService.GetFileHistory(c.UserContext(), fileID)
	if err != nil {
		r.logger.Errorw("Failed to get file history", "error", err, "fileId", fileID)
		response.Error = errCouldNotGetFile

		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}

	response.Results = results

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetQueueStatus
// @Summary		Get queue counters
// @Tags		queue
// @Produce		json
// @Success		200 {object} adapterentities.QueueResponse
// @Failure		500 {object} adapterentities.QueueResponse
// @Security	ApiKey
// @Router      /queue [get]
func (r *ResultController) GetQueueStatus(c *fiber.Ctx) error {
	var response adapterentities.QueueResponse

	counts, err := r.queryService.GetQueueStatus(c.UserContext())
	if err != nil {
		r.logger.Errorw("Failed to get queue status", "error", err)
		response.Error = errCouldNotGetQueue

		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}

	response.QueueCounts = counts

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetStats
// @Summary		Get the live scan statistics
// @Tags		stats
// @Produce		json
// @Success		200 {object} entities.StatsSnapshot
// @Security	ApiKey
// @Router      /stats [get]
func (r *ResultController) GetStats(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(r.queryService.GetStats())
}

func scanID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	return id, common.IsValidUUID(id)
}
