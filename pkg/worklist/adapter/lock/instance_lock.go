// Package lock keeps a second copy of a program from running against the same lock file.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const module = "instance_lock"

const (
	ConflictTitle = "error"
	ConflictText  = "another instance is already running"
	FailureText   = "unhandled error while running\nthe program may terminate"
	LockErrorText = "cannot take the instance lock"
	ConflictCode  = 1
)

// InstanceLock is a held lock file containing the owner's PID.
type InstanceLock struct {
	path string
	file *os.File
}

// Acquire creates path exclusively and writes the current PID into it.
// If the file already exists the error is an InstanceConflict naming the recorded PID.
func Acquire(path string) (*InstanceLock, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, exception.NewWorklistError(exception.KindInstanceConflict, module, conflictDetail(path), err)
		}
		return nil, exception.NewWorklistError(exception.KindConfig, module,
			fmt.Sprintf("cannot create lock file %s", path), err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, exception.NewWorklistError(exception.KindConfig, module,
			fmt.Sprintf("cannot write lock file %s", path), err)
	}
	if err := file.Sync(); err != nil {
		logger.Warnf("InstanceLock: failed to sync %s: %v", path, err)
	}
	logger.Debugf("InstanceLock: acquired %s.", path)
	return &InstanceLock{path: path, file: file}, nil
}

func conflictDetail(path string) string {
	pid := "unknown"
	if data, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		pid = strings.TrimSpace(string(data))
	}
	return fmt.Sprintf("PID of the running instance: %s\n"+
		"Deleting the lock file by hand is not recommended.\n"+
		"If the program was killed, %s may have been left behind.", pid, path)
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release closes and removes the lock file.
func (l *InstanceLock) Release() error {
	closeErr := l.file.Close()
	if err := os.Remove(l.path); err != nil {
		return err
	}
	logger.Debugf("InstanceLock: released %s.", l.path)
	return closeErr
}

// Guard runs fn while holding the lock at path.
// A conflict is reported through sink.Fatal with exit code 1 and fn is not run. Any other
// failure to take the lock is reported through sink.Error and returned. An error from fn is reported through sink.Warn and returned after the lock is released.
func Guard(path string, sink ports.ErrorSink, fn func() error) error {
	l, err := Acquire(path)
	if err != nil {
		if exception.IsInstanceConflict(err) {
			sink.Fatal(ConflictTitle, ConflictText, exception.ExtractErrorMessage(err), ConflictCode)
		} else {
			sink.Error(ConflictTitle, LockErrorText, exception.Detail(err))
		}
		return err
	}
	defer func() {
		if relErr := l.Release(); relErr != nil {
			logger.Warnf("InstanceLock: failed to release %s: %v", path, relErr)
		}
	}()

	if err := fn(); err != nil {
		sink.Warn(ConflictTitle, FailureText, exception.Detail(err))
		return err
	}
	return nil
}
