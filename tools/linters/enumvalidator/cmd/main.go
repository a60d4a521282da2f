package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"prepwise.app/pipeline/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
