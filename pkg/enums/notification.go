package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeInquiryNew       NotificationType = "INQUIRY_NEW"
	NotificationTypeInquiryQuoted    NotificationType = "INQUIRY_QUOTED"
	NotificationTypeInquiryMessage   NotificationType = "INQUIRY_MESSAGE"
	NotificationTypeOrderNew         NotificationType = "ORDER_NEW"
	NotificationTypeOrderCreated     NotificationType = "ORDER_CREATED"
	NotificationTypeOrderCancelled   NotificationType = "ORDER_CANCELLED"
	NotificationTypeOrderShipped     NotificationType = "ORDER_SHIPPED"
	NotificationTypeOrderStatus      NotificationType = "ORDER_STATUS"
	NotificationTypePaymentPending   NotificationType = "PAYMENT_PENDING"
	NotificationTypePaymentCompleted NotificationType = "PAYMENT_COMPLETED"
	NotificationTypePaymentApproved  NotificationType = "PAYMENT_APPROVED"
	NotificationTypePaymentRejected  NotificationType = "PAYMENT_REJECTED"
)

var notificationTypes = newSet("notification type",
	NotificationTypeInquiryNew,
	NotificationTypeInquiryQuoted,
	NotificationTypeInquiryMessage,
	NotificationTypeOrderNew,
	NotificationTypeOrderCreated,
	NotificationTypeOrderCancelled,
	NotificationTypeOrderShipped,
	NotificationTypeOrderStatus,
	NotificationTypePaymentPending,
	NotificationTypePaymentCompleted,
	NotificationTypePaymentApproved,
	NotificationTypePaymentRejected,
)

func (n NotificationType) String() string { return string(n) }

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

// ParseNotificationType accepts only the exact wire spelling.
func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
