// redline-cli is a manual smoke-test harness for the reconciliation engine:
// it reads an OOXML fragment and a desired-text file from disk, runs the
// engine, and prints the reconciled fragment plus a one-line summary.
//
// Run:
//
//	go run ./cmd/redline-cli --fragment frag.xml --modified modified.txt --original "Hello World"
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vortex/docx-redline/internal/redline"
)

func main() {
	fragmentPath := flag.String("fragment", "", "path to an OOXML fragment file (required)")
	modifiedPath := flag.String("modified", "", "path to the desired plain-text-plus-markdown file (required)")
	original := flag.String("original", "", "the text the fragment is expected to currently contain")
	author := flag.String("author", "docx-redline", "tracked-change author")
	targetParaID := flag.String("target-para-id", "", "w14:paraId of the paragraph to target inside a table cell")
	font := flag.String("font", "", "font to record on the paragraphs that list generation creates")
	noTrack := flag.Bool("no-track", false, "disable tracked-change wrappers (apply changes directly)")
	listFallback := flag.Bool("list-fallback", false, "force list generation if the primary pass reports no changes")
	flag.Parse()

	if *fragmentPath == "" || *modifiedPath == "" {
		log.Fatal("--fragment and --modified are required")
	}

	fragment, err := os.ReadFile(*fragmentPath)
	if err != nil {
		log.Fatalf("reading fragment: %v", err)
	}
	modified, err := os.ReadFile(*modifiedPath)
	if err != nil {
		log.Fatalf("reading modified text: %v", err)
	}

	opts := redline.Options{
		Author:            *author,
		GenerateRedlines:  !*noTrack,
		TargetParagraphID: *targetParaID,
		Font:              *font,
	}

	var res redline.Result
	if *listFallback {
		res = redline.ApplyRedlineToOxmlWithListFallback(string(fragment), *original, string(modified), opts)
	} else {
		res = redline.ApplyRedlineToOxml(string(fragment), *original, string(modified), opts)
	}

	fmt.Println(res.OXML)
	fmt.Fprintf(os.Stderr, "hasChanges=%t useNativeAPI=%t warnings=%v\n", res.HasChanges, res.UseNativeAPI, res.Warnings)
	if res.NumberingFragment != "" {
		fmt.Fprintf(os.Stderr, "numberingFragment=%s\n", res.NumberingFragment)
	}
}
