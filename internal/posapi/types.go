package posapi

import (
	"strconv"
	"strings"
	"time"

	"kasir/internal/money"
	"kasir/internal/pricing"
	"kasir/internal/session"
)

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (p Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

type ListFilter struct {
	Search   string
	Page     int
	PageSize int
	Extra    map[string]string
}

func (f ListFilter) query() map[string]string {
	q := map[string]string{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q["search"] = s
	}
	if f.Page > 0 {
		q["page"] = strconv.Itoa(f.Page)
	}
	if f.PageSize > 0 {
		q["page_size"] = strconv.Itoa(f.PageSize)
	}
	for k, v := range f.Extra {
		if strings.TrimSpace(v) != "" {
			q[k] = v
		}
	}
	return q
}

type LoginResponse struct {
	Access string       `json:"access"`
	User   session.User `json:"user"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"nama_kategori"`
	Description string `json:"deskripsi,omitempty"`
}

type Supplier struct {
	ID            int    `json:"id,omitempty"`
	Name          string `json:"nama_pemasok"`
	ContactPerson string `json:"kontak_person,omitempty"`
	Phone         string `json:"nomor_telepon,omitempty"`
	Address       string `json:"alamat,omitempty"`
}

type PriceRule struct {
	ID          int          `json:"id"`
	MinQuantity money.Amount `json:"jumlah_minimal"`
	TotalPrice  money.Amount `json:"harga_total_khusus"`
}

// Variant is a sellable product variant; stock and prices live here.
type Variant struct {
	ID                int          `json:"id"`
	ProductID         int          `json:"produk_induk"`
	Name              string       `json:"nama_varian"`
	SKU               string       `json:"sku"`
	Stock             money.Amount `json:"stok"`
	Unit              string       `json:"satuan"`
	PurchasePrice     money.Amount `json:"purchase_price"`
	LowStockThreshold money.Amount `json:"peringatan_stok_rendah"`
	TrackStock        bool         `json:"lacak_stok"`
	SupplierID        *int         `json:"pemasok"`
	NormalPrice       money.Amount `json:"harga_jual_normal"`
	ResellerPrice     money.Amount `json:"harga_jual_reseller"`
	Favorite          bool         `json:"is_favorit"`
	Active            bool         `json:"is_active"`
	ProductName       string       `json:"nama_produk_induk"`
	Category          string       `json:"kategori"`
	SupplierName      string       `json:"pemasok_nama"`
	PriceRules        []PriceRule  `json:"aturan_harga"`
}

func (v Variant) DisplayName() string {
	switch {
	case v.ProductName == "":
		return v.Name
	case v.Name == "":
		return v.ProductName
	default:
		return v.ProductName + " (" + v.Name + ")"
	}
}

// PricingLine converts v into the pricing resolver's input for qty units.
func (v Variant) PricingLine(qty float64) pricing.Line {
	breaks := make([]pricing.QuantityBreak, 0, len(v.PriceRules))
	for _, rule := range v.PriceRules {
		breaks = append(breaks, pricing.QuantityBreak{
			MinQuantity: rule.MinQuantity.Float(),
			TotalPrice:  rule.TotalPrice.Float(),
		})
	}
	return pricing.Line{
		VariantID:     v.ID,
		Quantity:      qty,
		NormalPrice:   v.NormalPrice.Float(),
		ResellerPrice: v.ResellerPrice.Float(),
		Breaks:        breaks,
	}
}

func (v Variant) IsLowStock() bool {
	return v.TrackStock && v.Stock <= v.LowStockThreshold
}

type BarcodeProduct struct {
	ProductName string `json:"nama_produk_induk"`
	VariantName string `json:"nama_varian"`
	SKU         string `json:"sku"`
	Category    string `json:"kategori"`
	Supplier    string `json:"pemasok"`
}

type DetailItem struct {
	VariantID int     `json:"varian_produk_id"`
	Quantity  float64 `json:"jumlah"`
}

const (
	PaymentCash  = "Tunai"
	PaymentQRIS  = "QRIS"
	PaymentDebit = "Debit"

	StatusDone      = "Selesai"
	StatusCancelled = "Dibatalkan"
	StatusHeld      = "Ditahan"
)

type CheckoutRequest struct {
	PaymentMethod string       `json:"metode_pembayaran"`
	Paid          float64      `json:"jumlah_bayar"`
	Discount      float64      `json:"diskon_nominal,omitempty"`
	DetailItems   []DetailItem `json:"detail_items"`
	CustomerType  string       `json:"customer_type"`
	Notes         string       `json:"notes,omitempty"`
}

type HoldRequest struct {
	DetailItems  []DetailItem `json:"detail_items"`
	CustomerType string       `json:"customer_type"`
	Notes        string       `json:"notes,omitempty"`
}

type TransactionDetail struct {
	ID       int          `json:"id"`
	Variant  Variant      `json:"varian_produk_terjual"`
	Quantity money.Amount `json:"jumlah"`
	Price    money.Amount `json:"harga_saat_transaksi"`
	Subtotal money.Amount `json:"subtotal"`
}

type Transaction struct {
	ID                 int                 `json:"id"`
	Number             string              `json:"nomor_transaksi"`
	CustomerType       string              `json:"customer_type"`
	Notes              string              `json:"notes"`
	Cashier            session.User        `json:"kasir"`
	Total              money.Amount        `json:"total_harga"`
	Discount           money.Amount        `json:"diskon_nominal"`
	TotalAfterDiscount money.Amount        `json:"total_setelah_diskon"`
	Paid               money.Amount        `json:"jumlah_bayar"`
	Change             money.Amount        `json:"kembalian"`
	PaymentMethod      string              `json:"metode_pembayaran"`
	Status             string              `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	DetailItems        []TransactionDetail `json:"detail_items"`
}

type TransactionSummary struct {
	TotalSales money.Amount `json:"total_penjualan"`
	Count      int          `json:"jumlah_transaksi"`
}

type TransactionPage struct {
	Page[Transaction]
	Summary TransactionSummary `json:"summary"`
}

// Stock movement reasons accepted by manage-stock.
const (
	ReasonPurchase = "PEMBELIAN"
	ReasonInitial  = "AWAL"
	ReasonReturn   = "RETUR"
	ReasonDamaged  = "RUSAK"
	ReasonLost     = "HILANG"
	ReasonInternal = "INTERNAL"
	ReasonOpname   = "OPNAME"
	ReasonSale     = "PENJUALAN"
)

type StockItem struct {
	VariantID     int     `json:"varian_id"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

type OpnameItem struct {
	VariantID     int     `json:"varian_id"`
	PhysicalCount float64 `json:"physical_count"`
}

type StockMovement struct {
	ID             int          `json:"id"`
	ProductID      int          `json:"product"`
	ProductName    string       `json:"product_name"`
	ParentName     string       `json:"nama_produk_induk"`
	Unit           string       `json:"satuan"`
	QuantityChange money.Amount `json:"quantity_change"`
	StockAfter     money.Amount `json:"stock_after"`
	Reason         string       `json:"reason"`
	ReasonDisplay  string       `json:"reason_display"`
	Notes          string       `json:"notes"`
	UserName       string       `json:"user_name"`
	CreatedAt      time.Time    `json:"created_at"`
}

const (
	KasbonHutang  = "HUTANG"
	KasbonPiutang = "PIUTANG"
)

type Kasbon struct {
	ID           int          `json:"id"`
	Type         string       `json:"tipe"`
	CustomerName string       `json:"pelanggan_name"`
	SupplierName string       `json:"supplier_name"`
	InitialTotal money.Amount `json:"total_awal"`
	TotalPaid    money.Amount `json:"total_dibayar"`
	Outstanding  money.Amount `json:"sisa_tagihan"`
	Settled      bool         `json:"lunas"`
	DueDate      string       `json:"tanggal_jatuh_tempo"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (k Kasbon) Counterparty() string {
	if k.Type == KasbonHutang && k.SupplierName != "" {
		return k.SupplierName
	}
	return k.CustomerName
}

type KasbonSummary struct {
	InitialTotal money.Amount `json:"total_awal"`
	TotalPaid    money.Amount `json:"total_dibayar"`
	Outstanding  money.Amount `json:"sisa_tagihan"`
}

type CreatePiutangRequest struct {
	CustomerName string  `json:"pelanggan_nama"`
	Total        float64 `json:"total_awal"`
	DueDate      string  `json:"tanggal_jatuh_tempo,omitempty"`
}

type CreateHutangRequest struct {
	SupplierID int     `json:"supplier"`
	Total      float64 `json:"total_awal"`
	DueDate    string  `json:"tanggal_jatuh_tempo,omitempty"`
}

type KasbonPayment struct {
	KasbonID int     `json:"hutang_piutang"`
	Amount   float64 `json:"jumlah_bayar"`
	Notes    string  `json:"catatan,omitempty"`
}

type KasbonHistoryEntry struct {
	ID          string       `json:"id"`
	Date        time.Time    `json:"tanggal"`
	Description string       `json:"keterangan"`
	In          money.Amount `json:"masuk"`
	Out         money.Amount `json:"keluar"`
}

type Customer struct {
	ID      int          `json:"id"`
	Name    string       `json:"nama_pelanggan"`
	Phone   string       `json:"nomor_telepon"`
	Address string       `json:"alamat"`
	Balance money.Amount `json:"saldo_simpanan"`
}

type SavingsSummary struct {
	TotalActive   money.Amount `json:"total_simpanan_aktif"`
	CustomerCount int          `json:"jumlah_pelanggan"`
}

type DepositRequest struct {
	CustomerName string  `json:"nama_pelanggan"`
	Amount       float64 `json:"jumlah"`
	Notes        string  `json:"keterangan,omitempty"`
	Phone        string  `json:"nomor_telepon,omitempty"`
	Address      string  `json:"alamat,omitempty"`
}

type WithdrawRequest struct {
	CustomerID int     `json:"pelanggan_id"`
	Amount     float64 `json:"jumlah"`
	Notes      string  `json:"keterangan,omitempty"`
}

type SavingsEntry struct {
	ID           int          `json:"id"`
	CustomerID   int          `json:"pelanggan"`
	Type         string       `json:"tipe"`
	Amount       money.Amount `json:"jumlah"`
	BalanceAfter money.Amount `json:"saldo_setelah"`
	Notes        string       `json:"keterangan"`
	RecordedBy   string       `json:"dicatat_oleh_username"`
	CreatedAt    time.Time    `json:"created_at"`
}

type KPI struct {
	Value     money.Amount `json:"value"`
	Trend     float64      `json:"trend"`
	TrendText string       `json:"trend_text"`
}

type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	User        string    `json:"user"`
	Description string    `json:"description"`
}

type DashboardStats struct {
	Revenue           KPI        `json:"revenue"`
	TotalTransactions KPI        `json:"total_transactions"`
	ItemsSold         KPI        `json:"items_sold"`
	LowStockItems     KPI        `json:"low_stock_items"`
	RecentActivities  []Activity `json:"recent_activities"`
}

type CashFlowDetails struct {
	CashSales       money.Amount `json:"cash_sales"`
	PiutangPayments money.Amount `json:"piutang_payments"`
	HutangPayments  money.Amount `json:"hutang_payments"`
	Expenses        money.Amount `json:"expenses"`
}

type CashFlowReport struct {
	TotalCashIn  money.Amount    `json:"total_cash_in"`
	TotalCashOut money.Amount    `json:"total_cash_out"`
	NetCashFlow  money.Amount    `json:"net_cash_flow"`
	Details      CashFlowDetails `json:"details"`
}

type Expense struct {
	ID          int          `json:"id"`
	Description string       `json:"keterangan"`
	Amount      money.Amount `json:"jumlah"`
	Date        string       `json:"tanggal"`
}

type ProfitLossReport struct {
	GrossSales          money.Amount `json:"gross_sales"`
	COGS                money.Amount `json:"cogs"`
	GrossProfit         money.Amount `json:"gross_profit"`
	OperationalExpenses money.Amount `json:"operational_expenses"`
	NetProfit           money.Amount `json:"net_profit"`
	ExpenseDetails      []Expense    `json:"expense_details"`
}

type StoreInfo struct {
	ID            int    `json:"id,omitempty"`
	Name          string `json:"nama_toko"`
	Address       string `json:"alamat"`
	Phone         string `json:"telepon"`
	ReceiptFooter string `json:"footer_struk"`
}
