// Package writer turns fetched batches into output rows.
//
// Two variants implement BatchWriter:
//
//   - RecordDump ("json"): every post as raw JSON, one per line (JSON Lines)
//   - TagExtraction ("hashtags"): one CSV row per account, the second column a
//     JSON array of the batch's hashtags, e.g. alice,"[""x"",""y"",""x""]"
//
// Read the hashtags column back with a CSV reader and decode its value as a
// JSON array of strings; an account whose posts carry no tags has [].
//
// Every WriteBatch call flushes, so output is complete up to the last
// successful batch even if the run stops early.
package writer
