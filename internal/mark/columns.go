package mark

// Columnar shapes. Each slice of structs renders as one array per
// attribute; absent values become null at that index so every array has
// the same length.

type addressColumns struct {
	Name       []*string `json:"name"`
	Identifier []*string `json:"identifier"`
	Address    []*string `json:"address"`
	Country    []*string `json:"country"`
}

func transposeAddresses(in []Address) addressColumns {
	out := addressColumns{
		Name:       make([]*string, 0, len(in)),
		Identifier: make([]*string, 0, len(in)),
		Address:    make([]*string, 0, len(in)),
		Country:    make([]*string, 0, len(in)),
	}
	for _, a := range in {
		out.Name = append(out.Name, strPtr(a.Name))
		out.Identifier = append(out.Identifier, strPtr(a.Identifier))
		out.Address = append(out.Address, strPtr(a.Address))
		out.Country = append(out.Country, strPtr(a.Country))
	}
	return out
}

type classificationColumns struct {
	NiceClass   []*string `json:"nice_class"`
	LocalClass  []*string `json:"local_class"`
	Description []*string `json:"description"`
}

func transposeClassifications(in []Classification) classificationColumns {
	out := classificationColumns{
		NiceClass:   make([]*string, 0, len(in)),
		LocalClass:  make([]*string, 0, len(in)),
		Description: make([]*string, 0, len(in)),
	}
	for _, c := range in {
		out.NiceClass = append(out.NiceClass, strPtr(c.NiceClass))
		out.LocalClass = append(out.LocalClass, strPtr(c.LocalClass))
		out.Description = append(out.Description, strPtr(c.Description))
	}
	return out
}

type priorityColumns struct {
	SerialNumber []*string `json:"serial_number"`
	Date         []*string `json:"date"`
	OfficeCode   []*string `json:"office_code"`
	Data         []*string `json:"data"`
}

func transposePriorities(in []Priority) priorityColumns {
	out := priorityColumns{
		SerialNumber: make([]*string, 0, len(in)),
		Date:         make([]*string, 0, len(in)),
		OfficeCode:   make([]*string, 0, len(in)),
		Data:         make([]*string, 0, len(in)),
	}
	for _, p := range in {
		out.SerialNumber = append(out.SerialNumber, strPtr(p.SerialNumber))
		out.Date = append(out.Date, datePtr(p.Date))
		out.OfficeCode = append(out.OfficeCode, strPtr(p.OfficeCode))
		out.Data = append(out.Data, strPtr(p.Data))
	}
	return out
}

type designationColumns struct {
	OfficeCode      []*string `json:"office_code"`
	Identifier      []*string `json:"identifier"`
	Date            []*string `json:"date"`
	UnderOfficeCode []*string `json:"under_office_code"`
}

func transposeDesignations(in []Designation) designationColumns {
	out := designationColumns{
		OfficeCode:      make([]*string, 0, len(in)),
		Identifier:      make([]*string, 0, len(in)),
		Date:            make([]*string, 0, len(in)),
		UnderOfficeCode: make([]*string, 0, len(in)),
	}
	for _, d := range in {
		out.OfficeCode = append(out.OfficeCode, strPtr(d.OfficeCode))
		out.Identifier = append(out.Identifier, strPtr(d.Identifier))
		out.Date = append(out.Date, datePtr(d.Date))
		out.UnderOfficeCode = append(out.UnderOfficeCode, strPtr(d.UnderOfficeCode))
	}
	return out
}

type historyColumns struct {
	Type            []*string `json:"type"`
	Timestamp       []*string `json:"timestamp"`
	Description     []*string `json:"description"`
	PublicationID   []*string `json:"publication_id"`
	PublicationDate []*string `json:"publication_date"`
}

func transposeHistories(in []History) historyColumns {
	out := historyColumns{
		Type:            make([]*string, 0, len(in)),
		Timestamp:       make([]*string, 0, len(in)),
		Description:     make([]*string, 0, len(in)),
		PublicationID:   make([]*string, 0, len(in)),
		PublicationDate: make([]*string, 0, len(in)),
	}
	for _, h := range in {
		out.Type = append(out.Type, strPtr(h.Type))
		out.Timestamp = append(out.Timestamp, timestampPtr(h.Timestamp))
		out.Description = append(out.Description, strPtr(h.Description))
		out.PublicationID = append(out.PublicationID, strPtr(h.PublicationID))
		out.PublicationDate = append(out.PublicationDate, datePtr(h.PublicationDate))
	}
	return out
}
