package record

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/stchris/pstexplorer/internal/pst"
	"github.com/stchris/pstexplorer/internal/textutil"
	"github.com/stchris/pstexplorer/internal/walker"
)

// Named property LIDs read by the decoder.
const (
	lidLocation        = 0x8208
	lidStartWhole      = 0x820D
	lidEndWhole        = 0x820E
	lidAllDay          = 0x8215
	lidTaskStatus      = 0x8101
	lidPercentComplete = 0x8102
	lidTaskDueDate     = 0x8105
	lidTaskComplete    = 0x811C
	lidTaskOwner       = 0x811F
	lidFileUnder       = 0x8005
	lidEmail1Address   = 0x8083
	lidNoteColor       = 0x8B00
)

// Decoder turns item handles into records. It reads properties only;
// attachment payloads are never loaded.
type Decoder struct {
	file  *pst.File
	named *pst.NamedProps
}

// NewDecoder loads the container's named property map.
func NewDecoder(f *pst.File) (*Decoder, error) {
	named, err := f.NamedProps()
	if err != nil {
		return nil, fmt.Errorf("load named properties: %w", err)
	}
	return &Decoder{file: f, named: named}, nil
}

// Decode fully decodes an item: headers, kind fields, body and attachment
// metadata. It always returns a record. When some fields fail the record
// keeps the rest and the returned *DecodeError is also in Record.DecodeErr.
func (d *Decoder) Decode(h walker.ItemHandle) (*Record, error) {
	return d.decode(h, true)
}

// Summary decodes headers and kind fields only, skipping the body and the
// attachment table. Browse uses it for item rows.
func (d *Decoder) Summary(h walker.ItemHandle) (*Record, error) {
	return d.decode(h, false)
}

func (d *Decoder) decode(h walker.ItemHandle, full bool) (*Record, error) {
	rec := &Record{ID: h.ID, Kind: KindEmail}
	if h.Folder != nil {
		rec.FolderID = h.Folder.ID
		rec.FolderPath = h.Folder.Path
	}
	derr := &DecodeError{ID: h.ID}
	d.fill(rec, h, full, derr)

	// A record always carries the payload for its kind.
	switch rec.Kind {
	case KindEmail:
		if rec.Email == nil {
			rec.Email = &Email{}
		}
	case KindCalendar:
		if rec.Calendar == nil {
			rec.Calendar = &Calendar{}
		}
	case KindContact:
		if rec.Contact == nil {
			rec.Contact = &Contact{}
		}
	case KindTask:
		if rec.Task == nil {
			rec.Task = &Task{}
		}
	case KindNote:
		if rec.Note == nil {
			rec.Note = &Note{}
		}
	}

	if len(derr.Fields) > 0 {
		rec.DecodeErr = derr
		return rec, derr
	}
	return rec, nil
}

func (d *Decoder) fill(rec *Record, h walker.ItemHandle, full bool, derr *DecodeError) {
	n := h.Node()
	if n == nil {
		var err error
		if n, err = d.file.ReadNode(h.ID); err != nil {
			derr.add("node", err)
			return
		}
	}
	pc, err := n.PropertyContext()
	if err != nil {
		derr.add("properties", err)
		return
	}
	pc.SetCodepage(messageCodepage(pc))
	r := &fields{pc: pc, named: d.named, err: derr}

	rec.MessageClass = r.str("message_class", pst.PropMessageClass)
	rec.Kind = KindOf(rec.MessageClass)
	rec.Subject = normalizeSubject(r.str("subject", pst.PropSubject))
	rec.Date = r.time("date", pst.PropClientSubmitTime)
	if !rec.Date.Known() {
		rec.Date = r.time("date", pst.PropDeliveryTime)
	}
	if size, ok := pc.Int32(pst.PropMessageSize); ok && size > 0 {
		rec.Size = int64(size)
	}
	rec.HasAttachments, _ = pc.Bool(pst.PropHasAttachments)

	switch rec.Kind {
	case KindEmail:
		rec.Email = r.email()
	case KindCalendar:
		rec.Calendar = r.calendar()
	case KindContact:
		rec.Contact = r.contact()
	case KindTask:
		rec.Task = r.task()
	case KindNote:
		rec.Note = r.note()
	}

	if !full {
		return
	}
	rec.Body = r.body()
	rec.Attachments = attachments(n, rec.HasAttachments, derr)
}

// messageCodepage picks the codepage for 8-bit strings.
func messageCodepage(pc *pst.PropertyContext) int {
	for _, id := range []pst.PropID{pst.PropMessageCodepage, pst.PropInternetCodepage} {
		if cp, ok := pc.Int32(id); ok && cp > 0 {
			return int(cp)
		}
	}
	return textutil.DefaultCodepage
}

// normalizeSubject drops the prefix marker Outlook stores in front of some
// subjects: 0x01 followed by the length of the "RE: " style prefix.
func normalizeSubject(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r != 0x01 {
		return s
	}
	_, m := utf8.DecodeRuneInString(s[n:])
	return s[n+m:]
}

// fields reads properties of one item and collects failures.
type fields struct {
	pc    *pst.PropertyContext
	named *pst.NamedProps
	err   *DecodeError
}

func (r *fields) str(field string, id pst.PropID) string {
	s, err := r.pc.String(id)
	if err != nil {
		r.err.add(field, err)
	}
	return s
}

func (r *fields) time(field string, id pst.PropID) Timestamp {
	t, ok, err := r.pc.Time(id)
	if err != nil {
		r.err.add(field, err)
		return Unknown
	}
	if !ok {
		return Unknown
	}
	return At(t)
}

func (r *fields) namedStr(field string, set pst.GUID, lid uint32) string {
	id, ok := r.named.Lookup(set, lid)
	if !ok {
		return ""
	}
	return r.str(field, id)
}

func (r *fields) namedTime(field string, set pst.GUID, lid uint32) Timestamp {
	id, ok := r.named.Lookup(set, lid)
	if !ok {
		return Unknown
	}
	return r.time(field, id)
}

func (r *fields) namedBool(set pst.GUID, lid uint32) bool {
	id, ok := r.named.Lookup(set, lid)
	if !ok {
		return false
	}
	v, _ := r.pc.Bool(id)
	return v
}

func (r *fields) namedInt32(set pst.GUID, lid uint32) (int32, bool) {
	id, ok := r.named.Lookup(set, lid)
	if !ok {
		return 0, false
	}
	return r.pc.Int32(id)
}

func (r *fields) sender() string {
	if s := r.str("from", pst.PropSenderName); s != "" {
		return s
	}
	return r.str("from", pst.PropSentRepresenting)
}

func (r *fields) email() *Email {
	return &Email{
		From:          r.sender(),
		SenderAddress: r.str("sender_address", pst.PropSenderEmail),
		To:            r.str("to", pst.PropDisplayTo),
		Cc:            r.str("cc", pst.PropDisplayCc),
		Bcc:           r.str("bcc", pst.PropDisplayBcc),
	}
}

func (r *fields) calendar() *Calendar {
	return &Calendar{
		Organizer: r.sender(),
		Location:  r.namedStr("calendar.location", pst.PSETIDAppointment, lidLocation),
		Start:     r.namedTime("calendar.start", pst.PSETIDAppointment, lidStartWhole),
		End:       r.namedTime("calendar.end", pst.PSETIDAppointment, lidEndWhole),
		AllDay:    r.namedBool(pst.PSETIDAppointment, lidAllDay),
	}
}

func (r *fields) contact() *Contact {
	return &Contact{
		DisplayName:   r.str("contact.display_name", pst.PropDisplayName),
		FileAs:        r.namedStr("contact.file_as", pst.PSETIDAddress, lidFileUnder),
		GivenName:     r.str("contact.given_name", pst.PropGivenName),
		Surname:       r.str("contact.surname", pst.PropSurname),
		Company:       r.str("contact.company", pst.PropCompanyName),
		EmailAddress:  r.namedStr("contact.email", pst.PSETIDAddress, lidEmail1Address),
		BusinessPhone: r.str("contact.business_phone", pst.PropBusinessPhone),
		HomePhone:     r.str("contact.home_phone", pst.PropHomePhone),
		MobilePhone:   r.str("contact.mobile_phone", pst.PropMobilePhone),
	}
}

func (r *fields) task() *Task {
	t := &Task{
		Due:      r.namedTime("task.due", pst.PSETIDTask, lidTaskDueDate),
		Complete: r.namedBool(pst.PSETIDTask, lidTaskComplete),
		Owner:    r.namedStr("task.owner", pst.PSETIDTask, lidTaskOwner),
	}
	if s, ok := r.namedInt32(pst.PSETIDTask, lidTaskStatus); ok {
		t.Status = TaskStatus(s)
	}
	if id, ok := r.named.Lookup(pst.PSETIDTask, lidPercentComplete); ok {
		v, _, err := r.pc.Float64(id)
		if err != nil {
			r.err.add("task.percent_complete", err)
		}
		t.PercentComplete = v
	}
	return t
}

func (r *fields) note() *Note {
	n := &Note{}
	if c, ok := r.namedInt32(pst.PSETIDNote, lidNoteColor); ok {
		n.Color = int(c)
	}
	return n
}

// body returns the plain text body, falling back to the HTML body and then
// to the compressed RTF body.
func (r *fields) body() string {
	if s := r.str("body", pst.PropBody); s != "" {
		return s
	}
	if s := r.htmlBody(); s != "" {
		return StripHTML(s)
	}
	raw, err := r.pc.Binary(pst.PropRTFCompressed)
	if err != nil {
		r.err.add("body.rtf", err)
		return ""
	}
	if len(raw) == 0 {
		return ""
	}
	rtf, err := DecompressRTF(raw)
	if err != nil {
		r.err.add("body.rtf", err)
		return ""
	}
	return RTFToText(rtf)
}

// htmlBody reads PidTagBodyHtml, which Outlook stores as a string or as
// bytes in the internet codepage.
func (r *fields) htmlBody() string {
	typ, ok := r.pc.Type(pst.PropBodyHTML)
	if !ok {
		return ""
	}
	if typ != pst.TypeBinary {
		return r.str("body.html", pst.PropBodyHTML)
	}
	b, err := r.pc.Binary(pst.PropBodyHTML)
	if err != nil {
		r.err.add("body.html", err)
		return ""
	}
	cp := textutil.DefaultCodepage
	if v, ok := r.pc.Int32(pst.PropInternetCodepage); ok && v > 0 {
		cp = int(v)
	}
	return textutil.DecodeCodepage(b, cp)
}

// attachments reads attachment metadata from the attachment table and each
// attachment's property context. Payload properties are not touched.
func attachments(n *pst.Node, flagged bool, derr *DecodeError) []Attachment {
	tn, err := n.SubNode(pst.NIDAttachmentTable)
	if pst.IsNotFound(err) {
		if flagged {
			derr.add("attachments", err)
		}
		return nil
	}
	if err != nil {
		derr.add("attachments", err)
		return nil
	}
	t, err := tn.Table()
	if err != nil {
		derr.add("attachments", err)
		return nil
	}

	var out []Attachment
	for i := 0; i < t.Len(); i++ {
		row, err := t.Row(i)
		if err != nil {
			derr.add("attachments", err)
			return out
		}
		an, err := n.SubNode(row.ID())
		if err != nil {
			derr.add("attachment", err)
			continue
		}
		pc, err := an.PropertyContext()
		if err != nil {
			derr.add("attachment", err)
			continue
		}
		r := &fields{pc: pc, err: derr}
		a := Attachment{
			Filename:    r.str("attachment.filename", pst.PropAttachLongName),
			ContentType: r.str("attachment.content_type", pst.PropAttachMimeTag),
		}
		if a.Filename == "" {
			a.Filename = r.str("attachment.filename", pst.PropAttachFilename)
		}
		if a.Filename == "" {
			a.Filename = r.str("attachment.filename", pst.PropDisplayName)
		}
		if a.ContentType == "" {
			a.ContentType = contentTypeFor(a.Filename)
		}
		if size, ok := pc.Int32(pst.PropAttachSize); ok && size > 0 {
			a.Size = int64(size)
		}
		if m, ok := pc.Int32(pst.PropAttachMethod); ok {
			a.Method = int(m)
		}
		out = append(out, a)
	}
	return out
}

// contentTypeFor guesses a content type from a file extension.
func contentTypeFor(name string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
