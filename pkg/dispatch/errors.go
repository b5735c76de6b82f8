/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dispatch

import "errors"

var (
	// ErrUnknownDevice means the device id resolves to no registered device.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrUnreachable means the device endpoint could not be reached after
	// retries were exhausted.
	ErrUnreachable = errors.New("device unreachable")

	// ErrTimeout means the device did not answer within the command budget.
	ErrTimeout = errors.New("dispatch timed out")

	// ErrBusy means another command to the same device is still in flight.
	ErrBusy = errors.New("dispatch busy")

	// ErrRejected means the device answered with a client error; retrying
	// the same request will not help.
	ErrRejected = errors.New("device rejected command")
)
