package main

import (
	"fmt"
	"io"
	"os"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// progressBar - полоса прогресса по числу тайлов в stderr
type progressBar struct {
	bar *pb.ProgressBar
	out io.Writer
}

func newProgressBar(total int, out io.Writer) *progressBar {
	bar := pb.New(total).SetWidth(79)
	bar.Output = out
	bar.ShowSpeed = true
	bar.Start()
	return &progressBar{bar: bar, out: out}
}

func (p *progressBar) Increment() {
	p.bar.Increment()
}

// Finish убирает полосу из терминала
func (p *progressBar) Finish() {
	p.bar.Output = nil
	p.bar.NotPrint = true
	p.bar.Finish()

	if p.out == os.Stderr {
		fmt.Fprint(p.out, "\033[2K\r")
	}
}
