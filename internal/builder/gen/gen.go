// Package gen renders the files of a generated project (stubs and CMakeLists.txt)
// and drives the CMake smoke build against them.
package gen

// File is a generated file, Path is slash-separated and relative to the project root
type File struct {
	Path    string
	Content string
}
