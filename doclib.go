// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sassoftware/viya-pdf-press/logger"
)

func init() {
	// Keep pdfcpu from creating a configuration directory under the user's home.
	api.DisableConfigDir()
}

// newPDFConfig returns the pdfcpu configuration shared by every operation.
func newPDFConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// readContext parses and validates data with pdfcpu.
func readContext(data []byte, opts LoadOptions) (*model.Context, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), newPDFConfig())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if opts.IgnoreEncryption && ctx.Encrypt != nil {
		logger.Debug("doclib: dropping encryption on save", true)
		ctx.Cmd = model.DECRYPT
	}
	return ctx, nil
}

// writeContext serializes ctx into a fresh buffer.
func writeContext(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfLibrary is the DocumentLibrary backed by pdfcpu.
type pdfLibrary struct{}

// NewPDFLibrary returns the pdfcpu DocumentLibrary.
func NewPDFLibrary() DocumentLibrary {
	return pdfLibrary{}
}

func (pdfLibrary) Load(data []byte, opts LoadOptions) (Document, error) {
	ctx, err := readContext(data, opts)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{ctx: ctx}, nil
}

type pdfDocument struct {
	ctx *model.Context
}

func (d *pdfDocument) SetTitle(s string)    { d.setInfo("Title", s) }
func (d *pdfDocument) SetAuthor(s string)   { d.setInfo("Author", s) }
func (d *pdfDocument) SetSubject(s string)  { d.setInfo("Subject", s) }
func (d *pdfDocument) SetCreator(s string)  { d.setInfo("Creator", s) }
func (d *pdfDocument) SetProducer(s string) { d.setInfo("Producer", s) }

// SetKeywords stores the keywords space separated.
func (d *pdfDocument) SetKeywords(kw []string) {
	d.setInfo("Keywords", strings.Join(kw, " "))
}

func (d *pdfDocument) PageCount() int {
	return d.ctx.PageCount
}

func (d *pdfDocument) Save(opts SaveOptions) ([]byte, error) {
	d.ctx.WriteObjectStream = opts.UseObjectStreams
	d.ctx.WriteXRefStream = opts.UseObjectStreams
	return writeContext(d.ctx)
}

// setInfo writes key into the document information dictionary, or removes
// it when value is empty.
func (d *pdfDocument) setInfo(key, value string) {
	info, err := infoDict(d.ctx, value != "")
	if err != nil {
		logger.Debug(fmt.Sprintf("doclib: info dictionary unavailable for %s: %v", key, err))
		return
	}
	if info == nil {
		return
	}
	if value == "" {
		info.Delete(key)
		return
	}
	info.Update(key, textObject(value))
}

// infoDict returns the document information dictionary. When the document has
// none and create is set, an empty one is added.
func infoDict(ctx *model.Context, create bool) (types.Dict, error) {
	if ctx.Info == nil {
		if !create {
			return nil, nil
		}
		d := types.NewDict()
		ir, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return nil, err
		}
		ctx.Info = ir
		return d, nil
	}
	return ctx.DereferenceDict(*ctx.Info)
}

// textObject encodes s as a PDF text string in hex form.
func textObject(s string) types.HexLiteral {
	return types.HexLiteral(hex.EncodeToString(encodeTextString(s)))
}

// textOf decodes a string object of ctx into UTF-8. Anything that is not a
// string yields "".
func textOf(ctx *model.Context, o types.Object) string {
	if o == nil {
		return ""
	}
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return ""
	}
	switch v := o.(type) {
	case types.StringLiteral:
		return decodeTextString(unescapeLiteral(string(v)))
	case types.HexLiteral:
		h := strings.Map(func(r rune) rune {
			if r < 0x80 && isWhitespace(byte(r)) {
				return -1
			}
			return r
		}, string(v))
		if len(h)%2 == 1 {
			h += "0"
		}
		b, err := hex.DecodeString(h)
		if err != nil {
			return ""
		}
		return decodeTextString(b)
	case types.Name:
		return string(v)
	}
	return ""
}
