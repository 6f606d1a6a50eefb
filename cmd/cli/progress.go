package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"mediasort/pkg/imports"
	"mediasort/pkg/logging"
)

// progressObserver draws a progress bar while files are placed.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// newProgressObserver returns nil unless w is a terminal.
func newProgressObserver(w io.Writer) imports.Observer {
	if !logging.IsTerminal(w) {
		return nil
	}
	return &progressObserver{w: w}
}

func (p *progressObserver) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Sorting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) FileDone(item imports.ItemResult) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *progressObserver) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
