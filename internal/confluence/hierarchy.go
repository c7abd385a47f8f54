package confluence

import (
	"encoding/xml"
	"io"
	"log"
	"os"
	"strings"
)

// Property-bag XML shape used by Confluence space exports: the document is a
// flat stream of <object class="Page"> elements whose children are <id> and
// <property> elements. The parent relation may appear three different ways,
// checked in this order: a direct id on the "parent" property, an id nested
// in an object inside the "parent" property, or a sibling "parentPage"
// reference property.

type xmlID struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlProperty struct {
	Name    string      `xml:"name,attr"`
	Value   string      `xml:",chardata"`
	IDs     []xmlID     `xml:"id"`
	Objects []xmlObject `xml:"object"`
}

type xmlObject struct {
	Class      string        `xml:"class,attr"`
	IDs        []xmlID       `xml:"id"`
	Properties []xmlProperty `xml:"property"`
}

// ParseHierarchy parses the export metadata file into an ordered list of
// page entries. The list order follows document order and is treated by the
// orchestrator as the authoritative processing order.
//
// Parsing is deliberately non-fatal at this layer: a missing, unreadable or
// malformed file yields an empty list and a warning. Whether an empty
// hierarchy fails the job is the orchestrator's call.
func ParseHierarchy(metadataPath string) []HierarchyEntry {
	file, err := os.Open(metadataPath)
	if err != nil {
		log.Printf("[Importer] Cannot open metadata file %s: %v", metadataPath, err)
		return nil
	}
	defer file.Close()

	return parseHierarchyXML(file)
}

func parseHierarchyXML(r io.Reader) []HierarchyEntry {
	var entries []HierarchyEntry

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[Importer] Malformed metadata XML, discarding %d parsed entries: %v", len(entries), err)
			return nil
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "object" {
			continue
		}
		if objectClass(start) != "Page" {
			decoder.Skip()
			continue
		}

		var obj xmlObject
		if err := decoder.DecodeElement(&obj, &start); err != nil {
			log.Printf("[Importer] Malformed page object in metadata, discarding %d parsed entries: %v", len(entries), err)
			return nil
		}

		entry := entryFromObject(obj)
		if entry.OriginalID == "" {
			log.Printf("[Importer] Dropping metadata page object without an id (title: %q)", entry.Title)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func objectClass(start xml.StartElement) string {
	for _, attr := range start.Attr {
		if attr.Name.Local == "class" {
			return attr.Value
		}
	}
	return ""
}

func entryFromObject(obj xmlObject) HierarchyEntry {
	entry := HierarchyEntry{OriginalID: firstID(obj.IDs)}

	var parentPageRef string
	for _, prop := range obj.Properties {
		switch prop.Name {
		case "title":
			entry.Title = strings.TrimSpace(prop.Value)
		case "parent":
			if entry.ParentID == "" {
				entry.ParentID = propertyID(prop)
			}
		case "parentPage":
			if parentPageRef == "" {
				parentPageRef = propertyID(prop)
			}
		}
	}
	if entry.ParentID == "" {
		entry.ParentID = parentPageRef
	}

	return entry
}

// propertyID resolves an id carried by a property: a direct id child first,
// then an id nested inside a child object, then bare character data.
func propertyID(prop xmlProperty) string {
	if id := firstID(prop.IDs); id != "" {
		return id
	}
	for _, nested := range prop.Objects {
		if id := firstID(nested.IDs); id != "" {
			return id
		}
	}
	return strings.TrimSpace(prop.Value)
}

func firstID(ids []xmlID) string {
	for _, id := range ids {
		if value := strings.TrimSpace(id.Value); value != "" {
			return value
		}
	}
	return ""
}
