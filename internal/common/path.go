// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath validates that a user-provided path is safe and within
// basePath. Returns the absolute, validated path or an error if validation
// fails. Prevents path traversal attacks by:
//  1. Cleaning the path (removes .., resolves ./, etc.)
//  2. Rejecting paths containing .. after cleaning
//  3. Rejecting absolute paths in user input
//  4. Resolving symlinks and rejecting ones that escape basePath
//  5. Ensuring the final path is within the base directory
func ValidatePath(basePath, userPath string) (string, error) {
	cleanPath := filepath.Clean(userPath)

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("invalid path: contains directory traversal sequence")
	}
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("invalid path: absolute paths not allowed")
	}

	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	fullPath := filepath.Join(absBase, cleanPath)

	checkPath := fullPath
	for {
		realPath, err := filepath.EvalSymlinks(checkPath)
		if err == nil {
			absReal, err := filepath.Abs(realPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve symlink: %w", err)
			}
			relPath, err := filepath.Rel(absBase, absReal)
			if err != nil || strings.HasPrefix(relPath, "..") {
				return "", fmt.Errorf("invalid path: symlink target outside base directory")
			}
			break
		}
		parent := filepath.Dir(checkPath)
		if parent == checkPath || parent == "." || parent == "/" {
			break
		}
		checkPath = parent
	}

	relPath, err := filepath.Rel(absBase, fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to determine relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("invalid path: outside base directory")
	}

	return fullPath, nil
}
