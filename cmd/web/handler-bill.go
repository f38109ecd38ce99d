package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/ingest"
	"github.com/myrjola/billeffect/internal/models"
)

const uploadFieldName = "file"

// pasteBill loads the bill pasted into the form.
func (app *application) pasteBill(w http.ResponseWriter, r *http.Request) {
	bill, err := app.ingester.FromText(r.PostFormValue("content"), models.BillSourcePaste)
	app.loadBill(w, r, bill, err)
}

// uploadBill loads the bill from an uploaded text, markdown or PDF file.
func (app *application) uploadBill(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "no file in upload", errors.SlogError(err))
		app.flash(r, "Choose a file to upload.")
		redirectHome(w, r)
		return
	}
	defer func() {
		_ = file.Close()
	}()
	bill, err := app.ingester.FromFile(r.Context(), header.Filename, file)
	app.loadBill(w, r, bill, err)
}

func (app *application) loadBill(w http.ResponseWriter, r *http.Request, bill models.Bill, err error) {
	ctx := r.Context()
	if err != nil {
		msg := "Could not read the bill: " + models.UserMessage(err, "unexpected error") + "."
		if errors.Is(err, ingest.ErrFileTooLarge) {
			msg = "The file is larger than 10 MiB."
		}
		app.logger.LogAttrs(ctx, slog.LevelWarn, "bill ingestion failed", errors.SlogError(err))
		app.flash(r, msg)
		redirectHome(w, r)
		return
	}
	app.currentStore(r).SetBill(bill)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "bill loaded", slog.String("bill_id", bill.ID),
		slog.String("title", bill.Title), slog.String("source", string(bill.Source)))
	app.flash(r, "Loaded "+bill.Title+".")
	redirectHome(w, r)
}

func (app *application) clearBill(w http.ResponseWriter, r *http.Request) {
	app.currentStore(r).ClearBill()
	redirectHome(w, r)
}
