package order

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/notify"
	"github.com/chhz0/dispatchr/pricing"
	"github.com/chhz0/dispatchr/storage"
	"github.com/chhz0/dispatchr/transport"
	"github.com/chhz0/dispatchr/types"
)

type recordingCharger struct {
	charges map[string]float64
	err     error
}

func (c *recordingCharger) Charge(_ context.Context, orderID string, amount float64) error {
	if c.err != nil {
		return c.err
	}
	c.charges[orderID] = amount
	return nil
}

var _ = Describe("Processor", func() {
	var (
		ctx       context.Context
		outbox    *transport.Recorder
		charger   *recordingCharger
		store     *storage.MemoryStorage
		processor *Processor
		fixed     = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		ctx = context.Background()
		outbox = &transport.Recorder{}
		charger = &recordingCharger{charges: map[string]float64{}}
		store = storage.NewMemoryStorage()

		priceReg, err := core.NewRegistryFrom(pricing.DefaultRules())
		Expect(err).NotTo(HaveOccurred())
		notifyReg, err := core.NewRegistryFrom(notify.Behaviors(map[types.Channel]notify.Sender{
			types.ChannelEmail: notify.Email(outbox),
			types.ChannelSMS:   notify.SMS(outbox),
		}))
		Expect(err).NotTo(HaveOccurred())

		processor, err = NewProcessor(core.NewDispatcher(priceReg), core.NewDispatcher(notifyReg), charger, store,
			WithClock(func() time.Time { return fixed }))
		Expect(err).NotTo(HaveOccurred())
	})

	It("prices, charges, notifies and persists a gold order", func() {
		res, err := processor.Process(ctx, types.Order{
			ID:           "101",
			BasePrice:    100,
			CustomerType: types.CustomerGold,
			NotifyBy:     types.ChannelEmail,
			Customer:     types.Recipient{Email: "john@test.com"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(types.OrderResult{OrderID: "101", FinalPrice: 80, Status: types.StatusProcessed}))

		Expect(charger.charges).To(HaveKeyWithValue("101", 80.0))

		sent := outbox.Sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Address).To(Equal("john@test.com"))
		Expect(sent[0].Body).To(Equal("Order confirmed! Price: $80"))

		rec, err := store.GetOrder(ctx, "101")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.FinalPrice).To(Equal(80.0))
		Expect(rec.CreatedAt).To(Equal(fixed))
	})

	It("assigns an id when the order has none", func() {
		res, err := processor.Process(ctx, types.Order{
			BasePrice:    10,
			CustomerType: types.CustomerRegular,
			NotifyBy:     types.ChannelSMS,
			Customer:     types.Recipient{Phone: "+1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.OrderID).NotTo(BeEmpty())
	})

	It("formats fractional prices with cents", func() {
		_, err := processor.Process(ctx, types.Order{
			ID:           "102",
			BasePrice:    19.99,
			CustomerType: types.CustomerPremium,
			NotifyBy:     types.ChannelEmail,
			Customer:     types.Recipient{Email: "a@b.c"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(outbox.Sent()[0].Body).To(Equal("Order confirmed! Price: $17.99"))
	})

	DescribeTable("fails before any side effect",
		func(o types.Order, check func(error) bool) {
			_, err := processor.Process(ctx, o)
			Expect(check(err)).To(BeTrue(), "unexpected error: %v", err)
			Expect(charger.charges).To(BeEmpty())
			Expect(outbox.Sent()).To(BeEmpty())
			list, _ := store.ListOrders(ctx, 0)
			Expect(list).To(BeEmpty())
		},
		Entry("unknown customer type",
			types.Order{ID: "1", BasePrice: 100, CustomerType: "student", NotifyBy: types.ChannelEmail},
			core.IsUnknownKey),
		Entry("unknown notification channel",
			types.Order{ID: "2", BasePrice: 100, CustomerType: types.CustomerGold, NotifyBy: types.ChannelSlack},
			core.IsUnknownKey),
		Entry("negative base price",
			types.Order{ID: "3", BasePrice: -1, CustomerType: types.CustomerGold, NotifyBy: types.ChannelEmail},
			func(err error) bool { return errors.Is(err, ErrInvalidOrder) }),
		Entry("infinite base price",
			types.Order{ID: "6", BasePrice: math.Inf(1), CustomerType: types.CustomerGold, NotifyBy: types.ChannelEmail},
			func(err error) bool { return errors.Is(err, ErrInvalidOrder) }),
		Entry("recipient without an address for the channel",
			types.Order{ID: "5", BasePrice: 100, CustomerType: types.CustomerVIP, NotifyBy: types.ChannelEmail},
			func(err error) bool {
				return errors.Is(err, ErrInvalidOrder) && errors.Is(err, notify.ErrMissingAddress)
			}),
	)

	It("propagates payment failures without notifying", func() {
		charger.err = errors.New("card declined")
		_, err := processor.Process(ctx, types.Order{
			ID: "4", BasePrice: 100, CustomerType: types.CustomerVIP, NotifyBy: types.ChannelEmail,
			Customer: types.Recipient{Email: "a@b.c"},
		})
		Expect(err).To(MatchError(ContainSubstring("card declined")))
		Expect(outbox.Sent()).To(BeEmpty())
	})

	It("reports channel send failures as behavior failures", func() {
		outbox.Err = errors.New("smtp down")
		_, err := processor.Process(ctx, types.Order{
			ID: "7", BasePrice: 100, CustomerType: types.CustomerVIP, NotifyBy: types.ChannelEmail,
			Customer: types.Recipient{Email: "a@b.c"},
		})
		Expect(core.IsBehaviorFailed(err)).To(BeTrue())
		Expect(core.IsUnknownKey(err)).To(BeFalse())
		Expect(errors.Is(err, outbox.Err)).To(BeTrue())
		list, _ := store.ListOrders(ctx, 0)
		Expect(list).To(BeEmpty())
	})

	It("requires every collaborator", func() {
		_, err := NewProcessor(nil, nil, NopCharger{}, store)
		Expect(err).To(HaveOccurred())
	})
})
