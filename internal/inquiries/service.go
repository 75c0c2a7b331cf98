package inquiries

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	numberAttempts       = 3
	defaultNumberPadding = 4
)

// Service runs the RFQ workflow.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Inquiry, error)
	List(ctx context.Context, actor *pkgAuth.Actor, filter ListFilter) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Inquiry, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor *pkgAuth.Actor) (*models.Inquiry, error)
	ImportFromExcel(ctx context.Context, r io.Reader, meta ImportMeta, actor *pkgAuth.Actor) (*models.Inquiry, error)
	AddMessage(ctx context.Context, id uuid.UUID, content string, actor *pkgAuth.Actor) (*models.InquiryMessage, error)
	ListMessages(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) ([]models.InquiryMessage, error)
	Document(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor, locale string) (*Quotation, error)
	CloseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type skuFinder interface {
	FindSKUsByCodes(ctx context.Context, codes []string) (map[string]models.SKU, error)
}

// ServiceParams bundles the inquiry service dependencies.
type ServiceParams struct {
	Repository    *Repository
	Tx            txRunner
	Notifier      notifications.Notifier
	Resolver      notifications.RecipientResolver
	SKUs          skuFinder
	Logger        *logger.Logger
	NumberPadding int
	Now           func() time.Time
}

type service struct {
	repo     *Repository
	tx       txRunner
	notifier notifications.Notifier
	resolver notifications.RecipientResolver
	skus     skuFinder
	logg     *logger.Logger
	padding  int
	now      func() time.Time
}

// NewService validates the dependencies and builds the inquiry service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("inquiry repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	if params.SKUs == nil {
		return nil, fmt.Errorf("sku finder required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	padding := params.NumberPadding
	if padding <= 0 {
		padding = defaultNumberPadding
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		notifier: params.Notifier,
		resolver: params.Resolver,
		skus:     params.SKUs,
		logg:     logg,
		padding:  padding,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	contactEmail := strings.ToLower(strings.TrimSpace(input.ContactEmail))
	if contactEmail == "" && actor != nil {
		contactEmail = actor.Email
	}
	if contactEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contactEmail is required")
	}
	contactName := strings.TrimSpace(input.ContactName)
	if contactName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contactName is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	currency, err := types.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	items, err := buildItems(input.Items, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkProducts(ctx, items); err != nil {
		return nil, err
	}

	inquiry := &models.Inquiry{
		ContactName:  contactName,
		ContactEmail: contactEmail,
		ContactPhone: types.TrimmedPtr(input.ContactPhone),
		CompanyName:  types.TrimmedPtr(input.CompanyName),
		Notes:        types.TrimmedPtr(input.Notes),
		Status:       enums.InquiryStatusPending,
		Currency:     currency,
	}
	if actor != nil {
		userID := actor.UserID
		inquiry.UserID = &userID
		inquiry.CompanyID = actor.CompanyID
	}

	year := s.now().UTC().Year()
	for attempt := 0; attempt < numberAttempts; attempt++ {
		inquiry.ID = uuid.Nil
		inquiry.Items = cloneItems(items)
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			count, err := txRepo.Count(ctx)
			if err != nil {
				return err
			}
			inquiry.InquiryNo = fmt.Sprintf("RFQ-%d-%0*d", year, s.padding, count+1+int64(attempt))
			return txRepo.Create(ctx, inquiry)
		})
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an inquiry number, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inquiry")
	}

	notice := notifications.Notice{
		Type:    enums.NotificationTypeInquiryNew,
		Title:   fmt.Sprintf("New inquiry %s", inquiry.InquiryNo),
		Content: fmt.Sprintf("%s <%s> requested a quotation for %d item(s).", inquiry.ContactName, inquiry.ContactEmail, len(items)),
	}.About(enums.ReferenceTypeInquiry, inquiry.ID)
	s.notifier.NotifyAdmin(ctx, notice)

	return s.load(ctx, inquiry.ID)
}

func (s *service) List(ctx context.Context, actor *pkgAuth.Actor, filter ListFilter) (*ListResult, error) {
	scope, err := actor.CompanyScope()
	if err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", *filter.Status)
	}
	filter.Page = filter.Page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inquiries")
	}
	if rows == nil {
		rows = []models.Inquiry{}
	}
	return &ListResult{Items: rows, Total: total, Page: filter.Page.Page, Limit: filter.Page.Limit}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	inquiry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessCompany(inquiry.CompanyID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "inquiry belongs to another company")
	}
	return inquiry, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	staff := actor.IsStaff()

	fields := map[string]any{}
	if input.ContactName != nil {
		name := strings.TrimSpace(*input.ContactName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "contactName cannot be empty")
		}
		fields["contact_name"] = name
	}
	if input.ContactEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*input.ContactEmail))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "contactEmail cannot be empty")
		}
		fields["contact_email"] = email
	}
	if input.ContactPhone != nil {
		fields["contact_phone"] = types.TrimmedPtr(input.ContactPhone)
	}
	if input.CompanyName != nil {
		fields["company_name"] = types.TrimmedPtr(input.CompanyName)
	}
	if input.Notes != nil {
		fields["notes"] = types.TrimmedPtr(input.Notes)
	}
	if input.Currency != nil {
		currency, err := types.NormalizeCurrency(*input.Currency)
		if err != nil {
			return nil, err
		}
		fields["currency"] = currency
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", *input.Status)
		}
		if !staff && *input.Status != enums.InquiryStatusClosed && *input.Status != current.Status {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers can only close an inquiry")
		}
		fields["status"] = *input.Status
	}

	var plan *itemPlan
	if input.Items != nil {
		if len(*input.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
		}
		if !staff {
			for i, in := range *input.Items {
				if in.QuotedPrice != nil {
					return nil, pkgerrors.Messagef(pkgerrors.CodeForbidden, "items[%d].quotedPrice is set by sales staff", i)
				}
			}
		}
		incoming, err := buildItems(*input.Items, false)
		if err != nil {
			return nil, err
		}
		if err := s.checkProducts(ctx, incoming); err != nil {
			return nil, err
		}
		plan, err = planItems(current.Items, incoming, staff)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inquiry")
		}
		if plan == nil {
			return nil
		}
		if err := txRepo.DeleteItems(ctx, id, plan.removed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inquiry items")
		}
		for i := range plan.updates {
			plan.updates[i].InquiryID = id
			if err := txRepo.UpdateItem(ctx, &plan.updates[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inquiry item")
			}
		}
		for i := range plan.inserts {
			plan.inserts[i].InquiryID = id
			if err := txRepo.CreateItem(ctx, &plan.inserts[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert inquiry item")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.InquiryStatusQuoted && updated.Status == enums.InquiryStatusQuoted {
		s.notifyQuoted(ctx, updated)
	}
	return updated, nil
}

// notifyQuoted sends exactly one quote notice: to the company's first user,
// or by email alone to the inquiry contact.
func (s *service) notifyQuoted(ctx context.Context, inquiry *models.Inquiry) {
	notice := notifications.Notice{
		Type:    enums.NotificationTypeInquiryQuoted,
		Title:   fmt.Sprintf("Quotation ready for %s", inquiry.InquiryNo),
		Content: fmt.Sprintf("Your inquiry %s has been quoted. Sign in to review the prices.", inquiry.InquiryNo),
	}.About(enums.ReferenceTypeInquiry, inquiry.ID)

	recipients, err := s.resolver.Resolve(ctx, notifications.AudienceQuoteReady, notifications.Subject{CompanyID: inquiry.CompanyID})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "inquiry_id", inquiry.ID.String()), fmt.Sprintf("resolve quote recipients: %v", err))
	}
	if len(recipients) > 0 {
		notifications.NotifyRecipients(ctx, s.notifier, recipients[:1], notice)
		return
	}
	s.notifier.NotifyEmailOnly(ctx, inquiry.ContactEmail, notice.Title, notice.Content)
}

func (s *service) AddMessage(ctx context.Context, id uuid.UUID, content string, actor *pkgAuth.Actor) (*models.InquiryMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	inquiry, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	sender := actor.UserID
	msg := &models.InquiryMessage{
		InquiryID:  inquiry.ID,
		SenderID:   &sender,
		SenderRole: actor.Role,
		Content:    content,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inquiry message")
	}

	notice := notifications.Notice{
		Type:    enums.NotificationTypeInquiryMessage,
		Title:   fmt.Sprintf("New message on %s", inquiry.InquiryNo),
		Content: content,
	}.About(enums.ReferenceTypeInquiry, inquiry.ID)
	subject := notifications.Subject{CompanyID: inquiry.CompanyID}

	if actor.IsStaff() {
		recipients, err := s.resolver.Resolve(ctx, notifications.AudienceCompanyUsers, subject)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("resolve company users: %v", err))
		}
		if notifications.NotifyRecipients(ctx, s.notifier, recipients, notice) == 0 {
			s.notifier.NotifyEmailOnly(ctx, inquiry.ContactEmail, notice.Title, notice.Content)
		}
		return msg, nil
	}

	recipients, err := s.resolver.Resolve(ctx, notifications.AudienceSalesRep, subject)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("resolve sales rep: %v", err))
	}
	if notifications.NotifyRecipients(ctx, s.notifier, recipients, notice) == 0 {
		s.notifier.NotifyAdmin(ctx, notice)
	}
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) ([]models.InquiryMessage, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inquiry messages")
	}
	if rows == nil {
		rows = []models.InquiryMessage{}
	}
	return rows, nil
}

func (s *service) Document(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor, locale string) (*Quotation, error) {
	inquiry, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(inquiry.Items))
	skuIDs := make([]uuid.UUID, 0, len(inquiry.Items))
	for _, item := range inquiry.Items {
		productIDs = append(productIDs, item.ProductID)
		if item.SKUID != nil {
			skuIDs = append(skuIDs, *item.SKUID)
		}
	}
	products, err := s.repo.ProductsByID(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	codes, err := s.repo.SKUCodes(ctx, skuIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sku codes")
	}

	doc := &Quotation{
		InquiryNo:    inquiry.InquiryNo,
		IssuedAt:     s.now().UTC(),
		Status:       inquiry.Status,
		ContactName:  inquiry.ContactName,
		ContactEmail: inquiry.ContactEmail,
		ContactPhone: inquiry.ContactPhone,
		CompanyName:  inquiry.CompanyName,
		Currency:     inquiry.Currency,
		Notes:        inquiry.Notes,
		Lines:        make([]QuotationLine, 0, len(inquiry.Items)),
		Total:        decimal.Zero,
	}
	for i, item := range inquiry.Items {
		product := products[item.ProductID]
		line := QuotationLine{
			No:           i + 1,
			ProductCode:  product.Code,
			ProductTitle: product.Title.Get(locale),
			Specs:        item.SKUSpecs,
			Quantity:     item.Quantity,
			TargetPrice:  item.TargetPrice,
			QuotedPrice:  item.QuotedPrice,
			LineTotal:    decimal.Zero,
		}
		if item.SKUID != nil {
			line.SKUCode = codes[*item.SKUID]
		}
		if item.QuotedPrice != nil {
			line.LineTotal = item.QuotedPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			doc.Total = doc.Total.Add(line.LineTotal)
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

func (s *service) CloseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stale threshold must be positive")
	}
	closed, err := s.repo.CloseStale(ctx, s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close stale inquiries")
	}
	return closed, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.NotFoundOr(err, "inquiry not found", "load inquiry")
	}
	return inquiry, nil
}

// checkProducts requires every line to name a live product and, when it names
// a SKU, a live SKU of that same product.
func (s *service) checkProducts(ctx context.Context, items []models.InquiryItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	var skuIDs []uuid.UUID
	for _, item := range items {
		ids = append(ids, item.ProductID)
		if item.SKUID != nil {
			skuIDs = append(skuIDs, *item.SKUID)
		}
	}
	live, err := s.repo.LiveProductIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check products")
	}
	owners, err := s.repo.LiveSKUProducts(ctx, skuIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check skus")
	}
	for i, item := range items {
		if _, ok := live[item.ProductID]; !ok {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d]: product %s not found", i, item.ProductID)
		}
		if item.SKUID == nil {
			continue
		}
		owner, ok := owners[*item.SKUID]
		if !ok {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].skuId: sku %s not found", i, *item.SKUID)
		}
		if owner != item.ProductID {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].skuId: sku %s does not belong to product %s", i, *item.SKUID, item.ProductID)
		}
	}
	return nil
}

func buildItems(inputs []ItemInput, fresh bool) ([]models.InquiryItem, error) {
	out := make([]models.InquiryItem, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].productId is required", i)
		}
		if in.Quantity < 1 {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].quantity must be at least 1", i)
		}
		if in.TargetPrice != nil && in.TargetPrice.IsNegative() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].targetPrice cannot be negative", i)
		}
		if in.QuotedPrice != nil && in.QuotedPrice.IsNegative() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].quotedPrice cannot be negative", i)
		}
		item := models.InquiryItem{
			ProductID:   in.ProductID,
			SKUID:       in.SKUID,
			SKUSpecs:    strings.TrimSpace(in.SKUSpecs),
			Quantity:    in.Quantity,
			TargetPrice: in.TargetPrice,
			QuotedPrice: in.QuotedPrice,
			SortOrder:   i,
		}
		if in.ID != nil && !fresh {
			item.ID = *in.ID
		}
		out = append(out, item)
	}
	return out, nil
}

type itemPlan struct {
	updates []models.InquiryItem
	inserts []models.InquiryItem
	removed []uuid.UUID
}

// planItems reconciles incoming lines against the stored ones by id. Buyers
// keep whatever quoted price staff already set on a line.
func planItems(current, incoming []models.InquiryItem, staff bool) (*itemPlan, error) {
	byID := make(map[uuid.UUID]models.InquiryItem, len(current))
	for _, item := range current {
		byID[item.ID] = item
	}
	seen := make(map[uuid.UUID]struct{}, len(incoming))
	plan := &itemPlan{}
	for i, item := range incoming {
		if item.ID == uuid.Nil {
			plan.inserts = append(plan.inserts, item)
			continue
		}
		stored, ok := byID[item.ID]
		if !ok {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].id does not belong to this inquiry", i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].id is listed twice", i)
		}
		seen[item.ID] = struct{}{}
		if !staff {
			item.QuotedPrice = stored.QuotedPrice
		}
		plan.updates = append(plan.updates, item)
	}
	for _, item := range current {
		if _, ok := seen[item.ID]; !ok {
			plan.removed = append(plan.removed, item.ID)
		}
	}
	return plan, nil
}

func cloneItems(items []models.InquiryItem) []models.InquiryItem {
	out := make([]models.InquiryItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ID = uuid.Nil
	}
	return out
}


