package billtext

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Session].
	ErrClosed = errors.New("billtext: session is closed")

	// ErrLogin is returned when the portal rejects the credentials or the
	// post-login page never loads.
	ErrLogin = errors.New("billtext: login failed")

	// ErrNavigation is returned when an expected page element cannot be
	// found or interacted with.
	ErrNavigation = errors.New("billtext: navigation failed")

	// ErrAccountNotFound is returned when the requested account is not
	// offered by the account picker.
	ErrAccountNotFound = errors.New("billtext: account not found")

	// ErrDownloadTimeout is returned when no finished download is accepted
	// before the timeout elapses.
	ErrDownloadTimeout = errors.New("billtext: timed out waiting for download")

	// ErrEmptyDocument is returned when the extractor receives no bytes.
	ErrEmptyDocument = errors.New("billtext: document is empty")

	// ErrNoText is returned when a document parses but yields only
	// whitespace.
	ErrNoText = errors.New("billtext: no text extracted from document")

	// ErrDownloadDir is returned when the download directory cannot be
	// created or accessed.
	ErrDownloadDir = errors.New("billtext: download directory unavailable")

	// ErrBrowser is returned when the browser cannot be started.
	ErrBrowser = errors.New("billtext: browser unavailable")
)

// Stage names a step of a statement retrieval.
type Stage string

const (
	StageDirectory  Stage = "directory"
	StageBrowser    Stage = "browser"
	StageLogin      Stage = "login"
	StageAccount    Stage = "account"
	StageNavigation Stage = "navigation"
	StageEmission   Stage = "emission"
	StageDownload   Stage = "download"
	StageExtraction Stage = "extraction"
)

// StageError records which step of a retrieval failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// AccountNotFoundError carries the account that was asked for and the
// accounts the portal offered instead.
type AccountNotFoundError struct {
	Requested string
	Available []string
}

func (e *AccountNotFoundError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("billtext: an account must be chosen. Available: [%s]", strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("billtext: account %s not found. Available: [%s]", e.Requested, strings.Join(e.Available, ", "))
}

func (e *AccountNotFoundError) Is(target error) bool {
	return target == ErrAccountNotFound
}

// DownloadTimeoutError describes what the watcher saw when it gave up.
type DownloadTimeoutError struct {
	Dir        string
	Candidates []string
	// Unreadable is set when the directory could not be listed at the end.
	Unreadable bool
}

func (e *DownloadTimeoutError) Error() string {
	if e.Unreadable {
		return fmt.Sprintf("billtext: timed out waiting for download and could not read %q", e.Dir)
	}
	return fmt.Sprintf("billtext: timed out waiting for download in %q. Candidates found: [%s]",
		e.Dir, strings.Join(e.Candidates, ", "))
}

func (e *DownloadTimeoutError) Is(target error) bool {
	return target == ErrDownloadTimeout
}
