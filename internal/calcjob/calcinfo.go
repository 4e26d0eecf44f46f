// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package calcjob

import "errors"

// ErrNoCode is returned when a CalcInfo has nothing to execute.
var ErrNoCode = errors.New("calculation has no code to run")

// CodeInfo describes one executable invocation.
type CodeInfo struct {
	Executable    string
	CmdlineParams []string
	// StdoutName, when set, is the folder file that receives stdout.
	StdoutName string
	WithMPI    bool
}

// CopyItem is a file staged into the folder before execution.
type CopyItem struct {
	Source string
	Target string
}

// CalcInfo is what a calculation hands to the lifecycle after preparing
// its folder.
type CalcInfo struct {
	CodesInfo     []CodeInfo
	LocalCopyList []CopyItem
	RetrieveList  []string
}

// Stage copies the local copy list into folder.
func (ci *CalcInfo) Stage(folder *Folder) error {
	for _, item := range ci.LocalCopyList {
		if err := folder.CopyIn(item.Source, item.Target); err != nil {
			return err
		}
	}
	return nil
}
