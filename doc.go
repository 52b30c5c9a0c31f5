// Package billtext retrieves billing statements from a utility customer
// portal and turns them into plain text.
//
// # Retrieval
//
// A [Fetcher] drives one browser session per call: it logs in, picks the
// customer account, asks the portal for the latest statement, waits for the
// download and extracts its text:
//
//	f := billtext.NewFetcher(
//	    billtext.NewChromeLauncher(billtext.WithNoSandbox()),
//	    billtext.WithDownloadRoot("/tmp/billtext_downloads"),
//	)
//	st, err := f.Fetch(ctx, billtext.Credentials{
//	    Email:    "cliente@example.com",
//	    Password: "secret",
//	    Account:  "7001234",
//	})
//
// Failures are reported as [*StageError] values wrapping a sentinel such as
// [ErrLogin] or [ErrDownloadTimeout]; use errors.Is and errors.As to inspect
// them. An unknown account yields an [*AccountNotFoundError] listing the
// accounts the portal offered.
//
// # Text extraction
//
// [Extractor] works on any PDF bytes, independent of the portal:
//
//	text, err := billtext.NewExtractor(billtext.MuPDFEngine{}).Extract(data)
//
// Pages are separated by a boundary marker naming the page just finished and
// the next one. [Text.PageTexts] splits the content back into pages.
//
// # Downloads
//
// [Watcher] polls a directory shared with the browser until a finished
// download appears, ignoring in-progress files.
package billtext
