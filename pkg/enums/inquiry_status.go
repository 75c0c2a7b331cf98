package enums

// InquiryStatus tracks an RFQ from submission to conversion.
type InquiryStatus string

const (
	InquiryStatusPending InquiryStatus = "PENDING"
	InquiryStatusQuoted  InquiryStatus = "QUOTED"
	InquiryStatusOrdered InquiryStatus = "ORDERED"
	InquiryStatusClosed  InquiryStatus = "CLOSED"
)

var inquiryStatuses = newSet("inquiry status",
	InquiryStatusPending,
	InquiryStatusQuoted,
	InquiryStatusOrdered,
	InquiryStatusClosed,
)

func (i InquiryStatus) String() string { return string(i) }

func (i InquiryStatus) IsValid() bool { return inquiryStatuses.has(i) }

// ParseInquiryStatus accepts only the exact wire spelling.
func ParseInquiryStatus(value string) (InquiryStatus, error) {
	return inquiryStatuses.parse(value)
}

// InquiryStatuses lists every inquiry status in declaration order.
func InquiryStatuses() []InquiryStatus { return inquiryStatuses.all() }
