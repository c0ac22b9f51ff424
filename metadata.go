// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sassoftware/viya-pdf-press/logger"
)

// Meta is the unified, metadata model (Info + XMP fields).
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// Minimal XML models to pull common XMP fields in a namespace
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	Title       altString `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description altString `xml:"http://purl.org/dc/elements/1.1/ description"`
	Creator     seqString `xml:"http://purl.org/dc/elements/1.1/ creator"`

	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	PDFKeywords string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords"`

	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

type altString struct {
	Alt struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
}

func (a altString) First() string {
	if len(a.Alt.LI) > 0 {
		return strings.TrimSpace(a.Alt.LI[0])
	}
	return ""
}

type seqString struct {
	Seq struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq"`
}

func (s seqString) First() string {
	if len(s.Seq.LI) > 0 {
		return strings.TrimSpace(s.Seq.LI[0])
	}
	return ""
}

type xmpFields struct {
	Title, Creator, Subject, Keywords, CreatorTool, Producer, CreateDate, ModifyDate string
}

// MetadataFull is the report shown by the metadata tool.
type MetadataFull struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`

	PDFVersion              string `json:"pdf:PDFVersion,omitempty"`
	HasXMP                  bool   `json:"pdf:hasXMP"`
	HasCollection           bool   `json:"pdf:hasCollection"`
	Encrypted               bool   `json:"pdf:encrypted"`
	NPages                  int    `json:"xmpTPg:NPages,omitempty"`
	ContainsNonEmbeddedFont bool   `json:"pdf:containsNonEmbeddedFont"`
	Language                string `json:"language,omitempty"`
	FileSize                int    `json:"fileSize"`

	AccessPermission AccessPermission `json:"access_permission"`
}

// AccessPermission mirrors the Standard Security P bits (ISO 32000-1 §7.6.3.2).
// A set bit grants the permission.
type AccessPermission struct {
	CanPrint                bool `json:"can_print"`
	CanPrintFaithful        bool `json:"can_print_faithful"`
	CanModify               bool `json:"can_modify"`
	ExtractContent          bool `json:"extract_content"`
	ModifyAnnotations       bool `json:"modify_annotations"`
	FillInForm              bool `json:"fill_in_form"`
	ExtractForAccessibility bool `json:"extract_for_accessibility"`
	AssembleDocument        bool `json:"assemble_document"`
}

var allPermissions = AccessPermission{
	CanPrint:                true,
	CanPrintFaithful:        true,
	CanModify:               true,
	ExtractContent:          true,
	ModifyAnnotations:       true,
	FillInForm:              true,
	ExtractForAccessibility: true,
	AssembleDocument:        true,
}

// permissionsFromP decodes the P entry of an Encrypt dictionary.
func permissionsFromP(p uint32) AccessPermission {
	var ap AccessPermission
	ap.CanPrint = (p & (1 << 2)) != 0
	ap.CanModify = (p & (1 << 3)) != 0
	ap.ExtractContent = (p & (1 << 4)) != 0
	ap.ModifyAnnotations = (p & (1 << 5)) != 0
	ap.FillInForm = (p&(1<<8)) != 0 || ap.ModifyAnnotations
	ap.ExtractForAccessibility = (p & (1 << 9)) != 0
	ap.AssembleDocument = (p & (1 << 10)) != 0
	ap.CanPrintFaithful = (p&(1<<11)) != 0 || ap.CanPrint
	return ap
}

// prefer returns a if non-empty after trimming, otherwise b.
func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// readInfo extracts metadata stored in the document information dictionary.
func readInfo(ctx *model.Context) Meta {
	logger.Debug("reading Info dictionary")
	info, err := infoDict(ctx, false)
	if err != nil || info == nil {
		return Meta{}
	}
	logger.Debug("found Info Dictionary", true)
	return Meta{
		Title:        textOf(ctx, info["Title"]),
		Author:       textOf(ctx, info["Author"]),
		Subject:      textOf(ctx, info["Subject"]),
		Keywords:     textOf(ctx, info["Keywords"]),
		Creator:      textOf(ctx, info["Creator"]),
		Producer:     textOf(ctx, info["Producer"]),
		CreationDate: textOf(ctx, info["CreationDate"]),
		ModDate:      textOf(ctx, info["ModDate"]),
	}
}

// readXMP returns the raw XMP XML from /Root/Metadata (empty string if absent).
func readXMP(ctx *model.Context) (string, error) {
	logger.Debug("reading XMP Stream")
	sd, ok := xmpStream(ctx)
	if !ok {
		logger.Debug("readXMP: no XMP stream present")
		return "", nil
	}
	logger.Debug("found XMP Stream", true)
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			logger.Error("readXMP: failed to decode XMP stream")
			return "", fmt.Errorf("decode xmp: %w", err)
		}
	}
	return string(sd.Content), nil
}

func xmpStream(ctx *model.Context) (types.StreamDict, bool) {
	root, err := ctx.Catalog()
	if err != nil {
		return types.StreamDict{}, false
	}
	o, err := ctx.Dereference(root["Metadata"])
	if err != nil || o == nil {
		return types.StreamDict{}, false
	}
	sd, ok := o.(types.StreamDict)
	return sd, ok
}

// parseXMPWithXML tries to parse XMP XML using encoding/xml into xmpPacket.
func parseXMPWithXML(x string) (xmpFields, bool) {
	logger.Debug("parsing XMP")
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(&pkt); err != nil {
		return xmpFields{}, false
	}

	var f xmpFields
	for _, d := range pkt.RDF.Descriptions {
		if t := d.Title.First(); t != "" {
			f.Title = t
		}
		if c := d.Creator.First(); c != "" {
			f.Creator = c
		}
		if s := d.Description.First(); s != "" {
			f.Subject = s
		}
		if k := strings.TrimSpace(d.PDFKeywords); k != "" {
			f.Keywords = k
		}
		if p := strings.TrimSpace(d.PDFProducer); p != "" {
			f.Producer = p
		}
		if ct := strings.TrimSpace(d.XMPCreatorTool); ct != "" {
			f.CreatorTool = ct
		}
		if cd := strings.TrimSpace(d.XMPCreateDate); cd != "" {
			f.CreateDate = cd
		}
		if md := strings.TrimSpace(d.XMPModifyDate); md != "" {
			f.ModifyDate = md
		}
	}
	return f, true
}

// parseXMPFallback performs a simple tag-search fallback if XML parsing fails.
func parseXMPFallback(xmp string) xmpFields {
	get := func(cands ...string) string {
		for _, t := range cands {
			open, close := "<"+t+">", "</"+t+">"
			if i := strings.Index(xmp, open); i >= 0 {
				if j := strings.Index(xmp[i+len(open):], close); j >= 0 {
					return strings.TrimSpace(stripXMLTags(xmp[i+len(open) : i+len(open)+j]))
				}
			}
		}
		return ""
	}
	return xmpFields{
		Title:       get("dc:title", "pdf:Title", "xmp:Title"),
		Creator:     get("dc:creator", "pdf:Author", "xmp:Author"),
		Subject:     get("dc:description", "pdf:Subject"),
		Keywords:    get("pdf:Keywords", "xmp:Keywords"),
		CreatorTool: get("xmp:CreatorTool"),
		Producer:    get("pdf:Producer"),
		CreateDate:  get("xmp:CreateDate"),
		ModifyDate:  get("xmp:ModifyDate"),
	}
}

// stripXMLTags removes simple XML tags from a string.
func stripXMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// metadataOf merges Info and XMP, XMP taking precedence.
func metadataOf(ctx *model.Context) (Meta, error) {
	info := readInfo(ctx)

	xmpXML, err := readXMP(ctx)
	if err != nil {
		return Meta{}, err
	}

	var xf xmpFields
	if xmpXML != "" {
		if got, ok := parseXMPWithXML(xmpXML); ok {
			xf = got
		} else {
			xf = parseXMPFallback(xmpXML)
		}
	}

	return Meta{
		Title:        prefer(xf.Title, info.Title),
		Author:       prefer(xf.Creator, info.Author),
		Subject:      prefer(xf.Subject, info.Subject),
		Keywords:     prefer(xf.Keywords, info.Keywords),
		Creator:      prefer(xf.CreatorTool, info.Creator),
		Producer:     prefer(xf.Producer, info.Producer),
		CreationDate: prefer(xf.CreateDate, info.CreationDate),
		ModDate:      prefer(xf.ModifyDate, info.ModDate),
	}, nil
}

// ReadMetadata returns unified metadata with XMP taking precedence over /Info.
func ReadMetadata(data []byte) (Meta, error) {
	ctx, err := readContext(data, LoadOptions{})
	if err != nil {
		return Meta{}, err
	}
	return metadataOf(ctx)
}

// ReadMetadataFull returns a comprehensive metadata report for the PDF.
func ReadMetadataFull(data []byte) (MetadataFull, error) {
	var out MetadataFull
	ctx, err := readContext(data, LoadOptions{})
	if err != nil {
		return out, err
	}
	md, err := metadataOf(ctx)
	if err != nil {
		return out, err
	}
	out.Title = md.Title
	out.Author = md.Author
	out.Subject = md.Subject
	out.Keywords = md.Keywords
	out.Creator = md.Creator
	out.Producer = md.Producer
	out.CreationDate = md.CreationDate
	out.ModDate = md.ModDate

	out.PDFVersion = headerVersion(data)
	_, out.HasXMP = xmpStream(ctx)
	if root, err := ctx.Catalog(); err == nil {
		out.HasCollection = root["Collection"] != nil
		out.Language = textOf(ctx, root["Lang"])
	}
	out.Encrypted = ctx.Encrypt != nil
	out.NPages = ctx.PageCount
	out.ContainsNonEmbeddedFont = containsNonEmbeddedFont(ctx)
	out.FileSize = len(data)
	out.AccessPermission = accessPermissions(ctx)
	logger.Debug("metadata extracted", true)
	return out, nil
}

// MetadataJSON writes the full metadata as pretty JSON to the provided writer.
func MetadataJSON(w io.Writer, data []byte) error {
	mf, err := ReadMetadataFull(data)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mf)
}

// headerVersion returns the PDF header version string.
func headerVersion(data []byte) string {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	line := string(data[:n])
	i := strings.Index(line, "%PDF-")
	if i < 0 {
		return ""
	}
	line = line[i+len("%PDF-"):]
	if j := strings.IndexAny(line, "\r\n \t%"); j >= 0 {
		line = line[:j]
	}
	return strings.TrimSpace(line)
}

// accessPermissions computes the effective access permissions from Encrypt.P.
func accessPermissions(ctx *model.Context) AccessPermission {
	if ctx.Encrypt == nil {
		return allPermissions
	}
	enc, err := ctx.DereferenceDict(*ctx.Encrypt)
	if err != nil || enc == nil {
		return allPermissions
	}
	o, err := ctx.Dereference(enc["P"])
	if err != nil {
		return allPermissions
	}
	p, ok := o.(types.Integer)
	if !ok {
		return allPermissions
	}
	return permissionsFromP(uint32(int32(p)))
}

// containsNonEmbeddedFont returns true if any page references a non-embedded font.
func containsNonEmbeddedFont(ctx *model.Context) bool {
	for i := 1; i <= ctx.PageCount; i++ {
		pd, _, inh, err := ctx.PageDict(i, false)
		if err != nil || pd == nil {
			continue
		}
		res, _ := ctx.DereferenceDict(pd["Resources"])
		if res == nil && inh != nil {
			res = inh.Resources
		}
		if res == nil {
			continue
		}
		fonts, err := ctx.DereferenceDict(res["Font"])
		if err != nil || fonts == nil {
			continue
		}
		for name, f := range fonts {
			fd, err := ctx.DereferenceDict(f)
			if err != nil || fd == nil {
				continue
			}
			if !fontEmbedded(ctx, fd) {
				logger.Debug(fmt.Sprintf("metadata: page %d font %s is not embedded", i, name))
				return true
			}
		}
	}
	return false
}

func fontEmbedded(ctx *model.Context, font types.Dict) bool {
	if st := font.NameEntry("Subtype"); st != nil {
		switch *st {
		case "Type3":
			return true
		case "Type0":
			arr, err := ctx.DereferenceArray(font["DescendantFonts"])
			if err != nil || len(arr) == 0 {
				return false
			}
			cid, err := ctx.DereferenceDict(arr[0])
			if err != nil || cid == nil {
				return false
			}
			font = cid
		}
	}
	desc, err := ctx.DereferenceDict(font["FontDescriptor"])
	if err != nil || desc == nil {
		return false
	}
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		if desc[key] != nil {
			return true
		}
	}
	return false
}

// MetadataEdit holds the fields set by the metadata editor. Keywords is the
// comma separated list typed by the user.
type MetadataEdit struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
}

// splitKeywords trims each comma separated keyword and drops empty ones.
func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// EditMetadata applies the non-empty fields of edit to the document and
// returns it as meta_<name>. Empty fields leave the existing value alone.
func EditMetadata(lib DocumentLibrary, name string, data []byte, edit MetadataEdit) (*Download, error) {
	doc, err := lib.Load(data, LoadOptions{})
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(edit.Title); s != "" {
		doc.SetTitle(s)
	}
	if s := strings.TrimSpace(edit.Author); s != "" {
		doc.SetAuthor(s)
	}
	if s := strings.TrimSpace(edit.Subject); s != "" {
		doc.SetSubject(s)
	}
	if kw := splitKeywords(edit.Keywords); len(kw) > 0 {
		doc.SetKeywords(kw)
	}
	out, err := doc.Save(SaveOptions{UseObjectStreams: true})
	if err != nil {
		return nil, err
	}
	return newDownload("meta_"+name, out, len(data)), nil
}
