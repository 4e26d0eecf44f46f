// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package calcjob is the local job lifecycle every calculation runner goes
// through: stage input files into a scratch folder, run an external
// executable there, copy the files named in the retrieve list into a fresh
// folder, and hand that folder to a parser.
//
// A parser reports its verdict as an ExitCode rather than an error. A
// non-zero exit code marks the step as failed but diagnosable; an error is
// reserved for the plumbing itself breaking (a disk that cannot be written,
// an executable that cannot be found).
package calcjob
