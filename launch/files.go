// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/xiwrap/sandbox"
)

// syncPipe is the readiness pipe shared by all proxies and bwrap.
type syncPipe struct {
	read  *os.File
	write *os.File
}

func newSyncPipe() (*syncPipe, error) {
	read, write, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating readiness pipe: %w", err)
	}
	return &syncPipe{read: read, write: write}, nil
}

// closeWrite drops the parent's copy of the write end once every proxy
// holds its own.
func (p *syncPipe) closeWrite() {
	if p != nil && p.write != nil {
		p.write.Close()
		p.write = nil
	}
}

func (p *syncPipe) closeRead() {
	if p != nil && p.read != nil {
		p.read.Close()
		p.read = nil
	}
}

func (p *syncPipe) Close() {
	p.closeWrite()
	p.closeRead()
}

// openFiles maps an invocation's ExtraFiles to descriptors for
// exec.Cmd.ExtraFiles. The returned owned files are data files the caller
// must close after the child has started; pipe ends are never in owned.
func openFiles(files []sandbox.ExtraFile, pipe *syncPipe) (extra []*os.File, owned []*os.File, err error) {
	closeOwned := func() {
		for _, file := range owned {
			file.Close()
		}
	}
	for i, file := range files {
		switch file.Kind {
		case sandbox.SyncRead, sandbox.SyncWrite:
			if pipe == nil {
				closeOwned()
				return nil, nil, fmt.Errorf("descriptor %d needs the readiness pipe, but none was created", sandbox.FirstExtraFD+i)
			}
			end := pipe.read
			if file.Kind == sandbox.SyncWrite {
				end = pipe.write
			}
			extra = append(extra, end)
		case sandbox.Data:
			data, err := dataFile(file.Data)
			if err != nil {
				closeOwned()
				return nil, nil, err
			}
			owned = append(owned, data)
			extra = append(extra, data)
		default:
			closeOwned()
			return nil, nil, fmt.Errorf("descriptor %d: unsupported kind %v", sandbox.FirstExtraFD+i, file.Kind)
		}
	}
	return extra, owned, nil
}

// dataFile returns an unlinked temporary file holding content, positioned
// at the start. Nothing is left on disk once the descriptor is closed.
func dataFile(content string) (*os.File, error) {
	file, err := os.CreateTemp("", "xiwrap-data-*")
	if err != nil {
		return nil, fmt.Errorf("creating data file: %w", err)
	}
	if err := os.Remove(file.Name()); err != nil {
		file.Close()
		return nil, fmt.Errorf("unlinking data file: %w", err)
	}
	if _, err := io.WriteString(file, content); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing data file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("rewinding data file: %w", err)
	}
	return file, nil
}

func closeAll(files []*os.File) {
	for _, file := range files {
		file.Close()
	}
}
