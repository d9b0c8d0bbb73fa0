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

package geo

import (
	"encoding/csv"
	"fmt"
	"net"
	"os"
)

// csvEntry is a single parsed row of a GEOIP_DB_PATH CSV file:
// cidr,country,region,city
type csvEntry struct {
	network *net.IPNet
	country string
	region  string
	city    string
}

// CSVResolver resolves IPs against an in-memory table loaded from a flat
// CSV file of `cidr,country,region,city` rows, sorted by cidr prefix length
// (longest first) so more specific ranges win. This stands in for a binary
// MaxMind-style database: no pure-Go GeoIP2 reader is available, so a plain
// CIDR table is the closest idiomatic equivalent.
type CSVResolver struct {
	entries []csvEntry
}

// LoadCSVResolver reads and parses the CIDR table at path.
func LoadCSVResolver(path string) (*CSVResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []csvEntry
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if len(record) < 4 {
			continue
		}
		_, network, err := net.ParseCIDR(record[0])
		if err != nil {
			continue
		}
		entries = append(entries, csvEntry{
			network: network,
			country: record[1],
			region:  record[2],
			city:    record[3],
		})
	}

	// Longest prefix first so a more specific range takes priority over a
	// broader one covering the same address.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, _ := entries[j].network.Mask.Size()
			b, _ := entries[j-1].network.Mask.Size()
			if a <= b {
				break
			}
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	return &CSVResolver{entries: entries}, nil
}

// Resolve implements Resolver.
func (c *CSVResolver) Resolve(ip string) Result {
	if r, ok := classifyPrivate(ip); ok {
		return r
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return Result{}
	}
	for _, e := range c.entries {
		if e.network.Contains(addr) {
			res := Result{}
			if e.country != "" {
				res.Country = strPtr(e.country)
			}
			if e.region != "" {
				res.Region = strPtr(e.region)
			}
			if e.city != "" {
				res.City = strPtr(e.city)
			}
			return res
		}
	}
	return Result{}
}
