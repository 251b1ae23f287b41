package convert

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/record"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func parse(t *testing.T, raw []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		t.Fatalf("output is not well-formed: %v", err)
	}
	return doc
}

func TestRunSingleBreaker(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{{
		record.FieldDescription: "Disjoncteur NSX100 32A",
		record.FieldReference:   "NSX100F",
	}}

	res, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Matched != 1 || res.Summary.Skipped != 0 {
		t.Errorf("summary = %+v", res.Summary)
	}

	doc := parse(t, res.XML)
	root := doc.Root()
	if root.Tag != "ElectricalProject" {
		t.Fatalf("root = %q", root.Tag)
	}

	product := root.FindElement("Products/ProductSet/Product")
	if product == nil {
		t.Fatal("no product emitted")
	}
	if got := product.SelectAttrValue("id", ""); got != "PG00001" {
		t.Errorf("product id = %q", got)
	}

	var rating string
	for _, char := range product.FindElements(".//Characteristic") {
		if id := char.SelectElement("Id"); id != nil && id.Text() == "PRT_CAL" {
			rating = char.FindElement("SetValues/Value/Id").Text()
		}
	}
	if rating != "32.00" {
		t.Errorf("PRT_CAL = %q", rating)
	}

	device := root.FindElement("Network/Devices/Device")
	if device == nil {
		t.Fatal("no device emitted")
	}
	if got := device.SelectAttrValue("ProductInstance", ""); got != "PI00001" {
		t.Errorf("device ProductInstance = %q", got)
	}

	terminals := root.FindElements("Network/Terminals/Terminal")
	if len(terminals) != 2 {
		t.Fatalf("got %d terminals", len(terminals))
	}

	// A single record has nothing to chain to.
	if conns := root.FindElements("Network/PowerConnections/PowerConnection"); len(conns) != 0 {
		t.Errorf("got %d connections for a single record", len(conns))
	}
}

func TestRunAllRecordsUnmatched(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{
		{record.FieldDescription: "Gaine ICTA diametre 20"},
		{record.FieldDescription: "Goulotte PVC"},
		{record.FieldDescription: "Coffret vide"},
	}

	res, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Matched != 0 || res.Summary.Skipped != 3 {
		t.Errorf("summary = %+v", res.Summary)
	}

	doc := parse(t, res.XML)
	if products := doc.Root().FindElements("Products/ProductSet/*"); len(products) != 0 {
		t.Errorf("skipped records produced %d products", len(products))
	}
	// Section wrappers are still present.
	if doc.Root().FindElement("Network/PowerConnections") == nil {
		t.Error("empty document lost its section wrappers")
	}
}

func TestRunChainsConsecutiveRecords(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{
		{record.FieldDescription: "Cable U1000 R2V 3G2.5"},
		{record.FieldDescription: "Cable U1000 R2V 5G6"},
	}

	res, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc := parse(t, res.XML)
	devices := doc.Root().FindElements("Network/Devices/Device")
	if len(devices) != 2 {
		t.Fatalf("got %d devices", len(devices))
	}
	for i, want := range []string{"ED00001", "ED00002"} {
		if got := devices[i].SelectAttrValue("id", ""); got != want {
			t.Errorf("device[%d] id = %q, want %q", i, got, want)
		}
	}

	conns := doc.Root().FindElements("Network/PowerConnections/PowerConnection")
	if len(conns) != 1 {
		t.Fatalf("got %d connections", len(conns))
	}
	if got := conns[0].SelectAttrValue("id", ""); got != "ECX00001" {
		t.Errorf("connection id = %q", got)
	}
	// First record's downstream terminal to second record's upstream.
	if got := conns[0].SelectAttrValue("Terminals", ""); got != "ECT00002 ECT00003" {
		t.Errorf("connection Terminals = %q", got)
	}
}

func TestRunSkipsDoNotBreakChaining(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{
		{record.FieldDescription: "Cable U1000 R2V"},
		{record.FieldDescription: "Gaine ICTA diametre 20"},
		{record.FieldDescription: "Disjoncteur 16A"},
	}

	res, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Matched != 2 || res.Summary.Skipped != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}

	doc := parse(t, res.XML)
	conns := doc.Root().FindElements("Network/PowerConnections/PowerConnection")
	if len(conns) != 1 {
		t.Fatalf("got %d connections", len(conns))
	}
	if got := conns[0].SelectAttrValue("Terminals", ""); got != "ECT00002 ECT00003" {
		t.Errorf("connection Terminals = %q", got)
	}
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{
		{record.FieldDescription: "Transformateur 1000kVA"},
		{record.FieldDescription: "Cable U1000 R2V"},
		{record.FieldDescription: "Disjoncteur NSX250 250A", record.FieldReference: "NSX250F"},
	}

	first, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.XML, second.XML) {
		t.Error("two runs over the same input differ")
	}
}

func TestRunCountsDefaultedRecords(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	records := []record.Record{
		{record.FieldDescription: "Disjoncteur"},
		{record.FieldDescription: "Disjoncteur NSX100 32A"},
	}

	res, err := Run(c, records, Meta{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Defaulted != 1 {
		t.Errorf("defaulted = %d, want 1", res.Summary.Defaulted)
	}
}

func TestRunStampsMetadata(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)
	res, err := Run(c, nil, Meta{ProjectName: "Usine Nord", CompanyName: "Bureau Etudes SA"})
	if err != nil {
		t.Fatal(err)
	}

	doc := parse(t, res.XML)
	if got := doc.Root().FindElement("Description/Name").Text(); got != "Usine Nord" {
		t.Errorf("project name = %q", got)
	}
	if got := doc.Root().FindElement("Contacts/Company/Name").Text(); got != "Bureau Etudes SA" {
		t.Errorf("company name = %q", got)
	}
	if got := doc.Root().FindElement("Description/StartDate").Text(); got != DefaultStartDate {
		t.Errorf("start date = %q", got)
	}
	if !strings.Contains(string(res.XML), `formatVersion="0.29"`) {
		t.Error("format version missing from root")
	}
}
