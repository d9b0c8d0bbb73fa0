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

package analytics

// timeBucketExpr returns the SQLite strftime expression for a timeseries
// granularity, bucketing s.scanned_at. Week buckets use %W (Monday-based
// week-of-year), matching the coarse granularity the report needs rather
// than ISO week numbering.
func timeBucketExpr(granularity string) string {
	switch granularity {
	case "hour":
		return `strftime('%Y-%m-%d %H:00', s.scanned_at)`
	case "week":
		return `strftime('%Y-W%W', s.scanned_at)`
	case "month":
		return `strftime('%Y-%m', s.scanned_at)`
	default:
		return `strftime('%Y-%m-%d', s.scanned_at)`
	}
}

var validGranularities = map[string]bool{"hour": true, "day": true, "week": true, "month": true}

// breakdownExpr returns the SQL expression grouped by for a given breakdown
// dimension. Unknown fields fall back to campaign, matching the original's
// default branch.
func breakdownExpr(field string) string {
	switch field {
	case "campaign":
		return "l.campaign"
	case "channel":
		return "l.channel"
	case "location":
		return "l.location"
	case "country":
		return "s.country"
	case "region":
		return "s.region"
	case "city":
		return "s.city"
	case "device":
		return "s.device_type"
	case "browser":
		return "s.browser"
	case "os":
		return "s.os"
	case "referrer":
		return "s.referrer"
	case "hour_of_day":
		return `strftime('%H', s.scanned_at)`
	case "day_of_week":
		return `strftime('%w', s.scanned_at)`
	default:
		return "l.campaign"
	}
}

var dayNames = map[string]string{
	"0": "Sunday", "1": "Monday", "2": "Tuesday", "3": "Wednesday",
	"4": "Thursday", "5": "Friday", "6": "Saturday",
}
