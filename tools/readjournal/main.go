// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// readjournal prints stored run journals.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ttbt-io/pagepilot/journal"
)

var (
	dataDir = flag.String("journal-dir", "journal", "Directory holding the run journals")
	trace   = flag.Bool("trace", false, "Print the compact trace instead of JSON")
	list    = flag.Bool("list", false, "List the stored run ids")
)

func main() {
	flag.Parse()
	s, err := journal.OpenStorage(*dataDir, os.Getenv("PP_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open journal storage: %v", err)
	}
	store := journal.NewStore(*dataDir, s)

	ids := flag.Args()
	if *list || len(ids) == 0 {
		all, err := store.List()
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if *list {
			for _, id := range all {
				fmt.Println(id)
			}
			return
		}
		ids = all
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, arg := range ids {
		// Accept paths like journal/runs/<id>.json too.
		id := strings.TrimSuffix(filepath.Base(arg), ".json")
		run, err := store.Load(id)
		if err != nil {
			log.Printf("%s: %v", arg, err)
			continue
		}
		fmt.Printf("=========== %s %s ===========\n", run.ID, run.Label)
		if *trace {
			fmt.Print(run.Trace())
			continue
		}
		if err := enc.Encode(run); err != nil {
			log.Printf("JSON: %s: %v", arg, err)
		}
	}
}
