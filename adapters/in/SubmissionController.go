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
	"tier-scanner/domain/ports/out"
	"tier-scanner/domain/services/admission"
	scannerhttp "tier-scanner/http"
	"tier-scanner/logging"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/uber-go/tally/v4"
)

const (
	HeaderCallerID  = "X-Caller-Id"
	submissionCount = "submissions"

	errInvalidBody      = "invalid request body"
	errInvalidScanID    = "invalid scan id"
	errScanIDNotFound   = "scan id not found"
	errNotCancellable   = "scan is no longer waiting in the queue"
	errCouldNotSchedule = "could not schedule file for scan"
	errCouldNotCancel   = "could not cancel scan"
)

type SubmissionController struct {
	validate     *validator.Validate
	submitter    admission.Submitter
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewSubmissionController(submitter admission.Submitter, metricsScope tally.Scope, logger logging.Logger) SubmissionController {
	return SubmissionController{submitter: submitter, metricsScope: metricsScope, logger: logger, validate: validator.New()}
}

// Submit
// @Summary		Submits a file for scanning
// @Tags		scans
// @Accept		json
// @Produce		json
// @Param		request	body	adapterentities.SubmitRequest	true	"File to be scanned"
// @Success		202 {object} adapterentities.SubmitResponse
// @Failure		400 {object} adapterentities.SubmitResponse
// @Failure		413 {object} adapterentities.SubmitResponse
// @Failure		429 {object} adapterentities.SubmitResponse
// @Failure		500 {object} adapterentities.SubmitResponse
// @Security	ApiKey
// @Router      /scans [post]
func (s *SubmissionController) Submit(c *fiber.Ctx) error {
	response := adapterentities.SubmitResponse{}
	request := &adapterentities.SubmitRequest{}

	if err := c.BodyParser(request); err != nil {
		s.logger.Errorw("Could not parse request", "error", err)
		response.Error = errInvalidBody
		s.count("invalid")

		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	if err := s.validate.Struct(request); err != nil {
		s.logger.Errorw("Some field is missing", "error", err)
		response.Error = err.Error()
		s.count("invalid")

		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	caller := scannerhttp.CallerFromContext(c)
	if caller == "" {
		caller = c.Get(HeaderCallerID)
	}

	result, err := s.submitter.Submit(c.UserContext(), request.ToSubmission(caller))
	if err != nil {
		status, outcome := rejectionStatus(err)
		if status == fiber.StatusInternalServerError {
			s.logger.Errorw("Failed to schedule file for scanning", "error", err, "fileId", request.FileID, "tier", request.Tier)
			response.Error = errCouldNotSchedule
		} else {
			s.logger.Infow("Submission rejected", "error", err, "fileId", request.FileID, "tier", request.Tier)
			response.Error = err.Error()
		}

		s.count(outcome)

		return c.Status(status).JSON(response)
	}

	s.count("admitted")

	return c.Status(fiber.StatusAccepted).JSON(adapterentities.MapAdmissionToResponse(result))
}

// Cancel
// @Summary		Cancels a scan still waiting in the queue
// @Tags		scans
// @Produce		json
// @Param		id	path	string	true	"Job id returned by the submission endpoint"
// @Success		200 {object} adapterentities.CancelResponse
// @Failure		400 {object} adapterentities.CancelResponse
// @Failure		404 {object} adapterentities.CancelResponse
// @Failure		409 {object} adapterentities.CancelResponse
// @Failure		500 {object} adapterentities.CancelResponse
// @Security	ApiKey
// @Router      /scans/{id} [delete]
func (s *SubmissionController) Cancel(c *fiber.Ctx) error {
	response := adapterentities.CancelResponse{}

	jobID, ok := scanID(c)
	if !ok {
		response.Error = errInvalidScanID
		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	err := s.submitter.Cancel(c.UserContext(), jobID)

	switch {
	case errors.Is(err, out.ErrJobNotFound):
		response.Error = errScanIDNotFound
		return c.Status(fiber.StatusNotFound).JSON(response)

	case errors.Is(err, out.ErrNotCancellable):
		response.Error = errNotCancellable
		return c.Status(fiber.StatusConflict).JSON(response)

	case err != nil:
		s.logger.Errorw("Failed to cancel scan", "error", err, "jobId", jobID)
		response.Error = errCouldNotCancel

		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}

	response.JobID = jobID
	response.Status = admission.CancelReason

	return c.Status(fiber.StatusOK).JSON(response)
}

func (s *SubmissionController) count(outcome string) {
	s.metricsScope.Tagged(map[string]string{"outcome": outcome}).Counter(submissionCount).Inc(1)
}

func rejectionStatus(err error) (int, string) {
	var (
		unknownTier *admission.UnknownTierError
		tooLarge    *admission.FileTooLargeError
		quota       *admission.QuotaExceededError
		invalid     *admission.InvalidSubmissionError
	)

	switch {
	case errors.As(err, &unknownTier):
		return fiber.StatusBadRequest, "unknown_tier"
	case errors.As(err, &invalid):
		return fiber.StatusBadRequest, "invalid"
	case errors.As(err, &tooLarge):
		return fiber.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &quota):
		return fiber.StatusTooManyRequests, "quota_exceeded"
	default:
		return fiber.StatusInternalServerError, "error"
	}
}
