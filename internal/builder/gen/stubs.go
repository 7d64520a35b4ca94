package gen

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	UmbrellaHeaderPath = IncludeDir + "/utils.hpp"
	EntryPointPath     = SourceDir + "/main.cpp"
)

// Class is the language a component stub is written in
type Class int

const (
	Native Class = iota
	CUDA
)

func (c Class) String() string {
	switch c {
	case Native:
		return "cpp"
	case CUDA:
		return "cuda"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// HeaderExt returns the header extension without the dot
func (c Class) HeaderExt() string {
	if c == CUDA {
		return "cuh"
	}
	return "hpp"
}

// SourceExt returns the source extension without the dot
func (c Class) SourceExt() string {
	if c == CUDA {
		return "cu"
	}
	return "cpp"
}

func HeaderPath(name string, class Class) string {
	return path.Join(IncludeDir, name+"."+class.HeaderExt())
}

func SourcePath(name string, class Class) string {
	return path.Join(SourceDir, name+"."+class.SourceExt())
}

// HeaderStub is the body of every component header. nvcc and C++ compilers
// both honor #pragma once, so CUDA headers share it.
func HeaderStub(Class) string {
	return "#pragma once\n\n"
}

// SourceStub includes the component's own header relative to src/
func SourceStub(name string, class Class) string {
	return fmt.Sprintf("#include \"../%s\"\n\n", HeaderPath(name, class))
}

// ComponentFiles returns a header and a source file for every name, in order
func ComponentFiles(names []string, class Class) []File {
	files := make([]File, 0, 2*len(names))
	for _, name := range names {
		files = append(files,
			File{Path: HeaderPath(name, class), Content: HeaderStub(class)},
			File{Path: SourcePath(name, class), Content: SourceStub(name, class)},
		)
	}
	return files
}

// UmbrellaHeader is precompiled and included by the entry point
func UmbrellaHeader(cuda bool) File {
	var sb strings.Builder
	writeln(&sb, "#pragma once")
	writeln(&sb, "#include <bits/extc++.h>")
	if cuda {
		writeln(&sb, "#include <cuda_runtime.h>")
		writeln(&sb, "#include <device_launch_parameters.h>")
	}
	return File{Path: UmbrellaHeaderPath, Content: sb.String()}
}

func EntryPoint() File {
	return File{Path: EntryPointPath, Content: `#include <iostream>
#include "../include/utils.hpp"
using namespace std;

int main(int argc, char** argv) {
    cout << "Hello, World!" << endl;
    return 0;
}
`}
}

// WriteFiles writes files under root, replacing existing ones. It does not
// create directories: a missing parent directory is reported as an error.
func WriteFiles(root string, files []File, onWrite func(File)) error {
	for _, f := range files {
		dst := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.WriteFile(dst, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
		if onWrite != nil {
			onWrite(f)
		}
	}
	return nil
}
