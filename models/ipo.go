package models

import "time"

// Default column headers of the TPEx/TWSE applying-company extract.
const (
	ColumnApplicationDate   = "申請日期"
	ColumnStockCode         = "股票代號"
	ColumnCompanyName       = "公司名稱"
	ColumnChairperson       = "董事長"
	ColumnCapital           = "申請時股本"
	ColumnCommitteeReview   = "上櫃審議委員會審議日期"
	ColumnBoardApproval     = "櫃買董事會通過上櫃日期"
	ColumnContractApproval  = "櫃買同意上櫃契約日期或證期局核准上櫃契約日期"
	ColumnListingDate       = "股票上櫃買賣日期"
	ColumnLeadUnderwriter   = "主辦承銷商"
	ColumnOfferPrice        = "承銷價"
	ColumnRemarks           = "備註"
	ColumnAuctionStockCode  = "證券代號"
	ColumnAuctionOpenedDate = "開標日期"
)

// IPOHeader is the canonical 12-column header written by the normalizers.
var IPOHeader = []string{
	ColumnApplicationDate,
	ColumnStockCode,
	ColumnCompanyName,
	ColumnChairperson,
	ColumnCapital,
	ColumnCommitteeReview,
	ColumnBoardApproval,
	ColumnContractApproval,
	ColumnListingDate,
	ColumnLeadUnderwriter,
	ColumnOfferPrice,
	ColumnRemarks,
}

// IPODateColumns are the columns holding calendar dates in the IPO extract.
var IPODateColumns = []string{
	ColumnApplicationDate,
	ColumnCommitteeReview,
	ColumnBoardApproval,
	ColumnContractApproval,
	ColumnListingDate,
}

// IPORecord is one IPO application. Row points back into the source table,
// which carries the pass-through attributes untouched.
type IPORecord struct {
	Row             int        `json:"row"`
	StockCode       string     `json:"stock_code"`
	CompanyName     string     `json:"company_name"`
	ApplicationDate *time.Time `json:"application_date,omitempty"`
	Fields          []string   `json:"fields"`
}

// AuctionRecord is one auction event from the independent auction dataset.
type AuctionRecord struct {
	Row         int        `json:"row"`
	StockCode   string     `json:"stock_code"`
	AuctionDate *time.Time `json:"auction_date,omitempty"`
}

// DuplicateGroup holds every IPORecord sharing one stock code, in first-seen order.
type DuplicateGroup struct {
	StockCode string      `json:"stock_code"`
	Records   []IPORecord `json:"records"`
}

// CompanyName returns the first non-empty company name in the group.
func (g DuplicateGroup) CompanyName() string {
	for _, record := range g.Records {
		if record.CompanyName != "" {
			return record.CompanyName
		}
	}
	return ""
}
