// Package storage owns the files a collection run produces.
//
// An OutputFile is created before the first account is fetched and written
// to through the chosen writer. Data lands in a hidden temporary file in the
// target directory; Commit renames it over the target so readers never see a
// half-written file, and Abort throws it away.
//
// Usage:
//
//	out, err := storage.Create("timelines.jsonl")
//	if err != nil {
//	    return err
//	}
//	defer out.Close()
//
//	w, _ := writer.New(writer.FormatJSON, out)
//
// WriteFileAtomic applies the same pattern to small files such as the run
// summary.
package storage
