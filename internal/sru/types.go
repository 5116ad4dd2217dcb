package sru

import "encoding/xml"

// searchRetrieveResponse mirrors the SRU 2.0 envelope returned by the
// endpoint. Fields match by local name; the srw/gzd/dcterms namespace
// prefixes on the wire are ignored, which keeps the decode tolerant of
// prefix changes on the remote side.
type searchRetrieveResponse struct {
	XMLName         xml.Name       `xml:"searchRetrieveResponse"`
	NumberOfRecords int            `xml:"numberOfRecords"`
	Records         []responseItem `xml:"records>record"`
}

type responseItem struct {
	Position int        `xml:"recordPosition"`
	Data     recordData `xml:"recordData"`
}

type recordData struct {
	Gzd gzdRecord `xml:"gzd"`
}

// gzdRecord carries the government "gzd" record schema: enriched metadata
// fields plus the original ruling document.
type gzdRecord struct {
	Enriched enrichedData `xml:"enrichedData"`
	Original originalData `xml:"originalData"`
}

type enrichedData struct {
	// Identifier is the ECLI of the ruling (dcterms:identifier).
	Identifier string `xml:"identifier"`
}

type originalData struct {
	// Raw keeps the inner XML untouched; text extraction happens later.
	Raw string `xml:",innerxml"`
}
