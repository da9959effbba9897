// Copyright 2025 Poiesic Systems
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


// Package ingestion turns uploaded documents into stored, encrypted credentials.
//
// A Pipeline run moves through fixed stages, reporting each step to a
// progress.Sink:
//
//  1. Input checks: owner, source kind and size. Failures end the run with a
//     single error event.
//  2. Chunking: the document text is split on line boundaries into chunks of
//     bounded size (Split).
//  3. Extraction: chunks are sent one at a time to the Extractor. A failed
//     chunk contributes no records but never stops the run.
//  4. Persistence: the Persister encrypts and stores each record, collecting
//     per-record failures instead of aborting.
//
// Every run ends with exactly one terminal event, success or error.
//
// # Usage
//
//	pipeline, err := ingestion.NewPipeline(repo, cipher, extractor,
//	    ingestion.WithPoolSize(4),
//	    ingestion.WithPreferDirectCSV(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Release()
//
//	result, err := pipeline.Run(ctx, core.RawContent{Kind: core.SourceKindCSV, Text: csv}, owner, sink)
//
// # CSV Handling
//
// CSV uploads go to the model first and fall back to ParseCSV when the model
// finds nothing. WithPreferDirectCSV reverses that order.
package ingestion
