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

package admission

import (
	"errors"
	"fmt"
)

// ErrAdmissionRejected matches every error returned when a submission is refused.
var ErrAdmissionRejected = errors.New("submission rejected")

type UnknownTierError struct {
	Tier string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown tier %q", e.Tier)
}

func (e *UnknownTierError) Is(target error) bool {
	return target == ErrAdmissionRejected
}

type FileTooLargeError struct {
	Tier     string
	Size     int64
	MaxBytes int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit of %d bytes for tier %q", e.Size, e.MaxBytes, e.Tier)
}

func (e *FileTooLargeError) Is(target error) bool {
	return target == ErrAdmissionRejected
}

type QuotaExceededError struct {
	CallerID string
	Day      string
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("caller %q reached the daily limit of %d jobs on %s", e.CallerID, e.Limit, e.Day)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrAdmissionRejected
}

type InvalidSubmissionError struct {
	Reason string
}

func (e *InvalidSubmissionError) Error() string {
	return "invalid submission: " + e.Reason
}

func (e *InvalidSubmissionError) Is(target error) bool {
	return target == ErrAdmissionRejected
}
