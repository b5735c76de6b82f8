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

package registry

import "errors"

var (
	// ErrDeviceNotFound indicates the device id is not registered.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrProfileNotFound indicates the profile id does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidProfileReference indicates a device mutation pointed at a
	// profile id that does not exist.
	ErrInvalidProfileReference = errors.New("profile reference does not exist")

	// ErrProfileInUse blocks deletion of a profile still assigned to a device.
	ErrProfileInUse = errors.New("profile is referenced by a device")

	// ErrDeviceIDRequired rejects mutations without a device id.
	ErrDeviceIDRequired = errors.New("device id is required")

	// ErrProfileIDRequired rejects mutations without a profile id.
	ErrProfileIDRequired = errors.New("profile id is required")
)
