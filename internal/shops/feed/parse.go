package feed

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/errx"
	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/shops"
)

// Row is one catalog record keyed by column (CSV) or child element (XML) name.
type Row map[string]string

// Mapping resolves logical product fields to feed column names. Unmapped fields
// use their own name as the column.
type Mapping map[string]string

func (m Mapping) column(field string) string {
	if c, ok := m[field]; ok && c != "" {
		return c
	}
	return field
}

func (m Mapping) get(r Row, field string) string {
	return strings.TrimSpace(r[m.column(field)])
}

// ItemTag is the XML element holding one product, "item" unless mapped.
func (m Mapping) ItemTag() string {
	return m.column("item_tag")
}

var (
	errMissingID    = errors.New("missing id")
	errMissingName  = errors.New("missing name")
	errMissingPrice = errors.New("missing price")
	errFreePrice    = errors.New("price is not positive")
)

// MapRow turns a record into a product. The shop id, currency and affiliate link
// are left to the caller.
func (m Mapping) MapRow(r Row) (models.ProductResult, error) {
	id := m.get(r, "id")
	if id == "" {
		return models.ProductResult{}, errMissingID
	}
	name := m.get(r, "name")
	if name == "" {
		return models.ProductResult{}, errMissingName
	}
	priceText := m.get(r, "price")
	if priceText == "" {
		return models.ProductResult{}, errMissingPrice
	}
	price, ok := shops.ParsePrice(priceText)
	if !ok {
		return models.ProductResult{}, fmt.Errorf("unparseable price %q", priceText)
	}
	if !price.IsPositive() {
		return models.ProductResult{}, errFreePrice
	}

	p := models.ProductResult{
		ExternalID:  id,
		Name:        name,
		Brand:       m.get(r, "brand"),
		Price:       price,
		Category:    m.get(r, "category"),
		Color:       m.get(r, "color"),
		Material:    m.get(r, "material"),
		Gender:      m.get(r, "gender"),
		Description: shops.CleanText(m.get(r, "description")),
		ProductURL:  m.get(r, "url"),
		ImageURL:    m.get(r, "image_url"),
		InStock:     true,
	}
	if orig := m.get(r, "original_price"); orig != "" {
		if d, ok := shops.ParsePrice(orig); ok {
			p.OriginalPrice = &d
		}
	}
	if sizes := m.get(r, "sizes"); sizes != "" {
		for _, s := range strings.Split(sizes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				p.Sizes = append(p.Sizes, s)
			}
		}
	}
	if stock := m.get(r, "in_stock"); stock != "" {
		p.InStock = strings.EqualFold(stock, "true")
	}
	return p, nil
}

// ParseCSV reads a delimited catalog with a header row. A structurally broken row
// becomes a record error and parsing continues.
func ParseCSV(shopID string, data []byte) ([]Row, []error, error) {
	rd := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true
	rd.ReuseRecord = false

	header, err := rd.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errx.Source(shopID, "read csv header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		rows []Row
		errs []error
	)
	for line := 2; ; line++ {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			errs = append(errs, errx.Record(shopID, fmt.Sprintf("csv line %d", line), err))
			continue
		}
		if err != nil {
			return rows, errs, errx.Source(shopID, "read csv", err)
		}
		if len(rec) > len(header) {
			errs = append(errs, errx.Record(shopID, fmt.Sprintf("csv line %d", line),
				fmt.Errorf("%d fields, header has %d", len(rec), len(header))))
			continue
		}
		row := make(Row, len(header))
		for i, v := range rec {
			row[header[i]] = v
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

type xmlNode struct {
	XMLName  xml.Name
	Content  string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// ParseXML collects every itemTag element; its child element names become row keys.
func ParseXML(shopID string, data []byte, itemTag string) ([]Row, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var rows []Row
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, errx.Source(shopID, "read xml", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != itemTag {
			continue
		}
		var node xmlNode
		if err := dec.DecodeElement(&node, &start); err != nil {
			return rows, errx.Source(shopID, "decode xml item", err)
		}
		row := make(Row, len(node.Children))
		for _, c := range node.Children {
			row[c.XMLName.Local] = strings.TrimSpace(c.Content)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
