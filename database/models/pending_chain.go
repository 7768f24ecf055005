// Copyright 2026 Blink Labs Software
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

package models

// PendingChain holds the ends of a voter's chain of pending vote commitments
type PendingChain struct {
	Voter  string `gorm:"primarykey;size:128"`
	Head   uint64 `gorm:"not null"`
	Tail   uint64 `gorm:"not null"`
	Length uint64 `gorm:"not null"`
}

// TableName returns the table name
func (PendingChain) TableName() string {
	return "pending_chain"
}
