package hometax

// Element ids of the Hometax pages. The portal is a WebSquare application;
// ids are stable across sessions but live in frames that are rebuilt on
// every navigation.
const (
	headerUserInfoSelector = "#mf_wfHeader_memUserInfo, #mf_wfHeader_group1503, #tmpUsrNm"
	loginAnchorSelector    = "#mf_txppWframe_loginboxFrame_anchor22"

	certModalSelector    = "#ML_window"
	hddButtonSelector    = "#stg_hdd"
	driveMenuSelector    = "#driver_div"
	driveListSelector    = "#sub_drv_list"
	driveItemSelector    = "#sub_drv_list li"
	certTableSelector    = "#tabledataTable"
	certRowSelector      = "#tabledataTable tbody tr"
	certConfirmSelectorA = "#btn_confirm_iframe"
	certConfirmSelectorB = "#btn_confirm"

	mainMenuSelector     = "#mf_wfHeader_wq_uuid_369"
	singleIssueSelector  = "#combineMenuAtag_4601010100"
	singleIssueMenuLabel = "전자(세금)계산서 건별발급"

	buyerBizNoSelector        = "#mf_txppWframe_edtDmnrBsnoTop"
	buyerBizNoConfirmSelector = "#mf_txppWframe_btnDmnrBsnoCnfrTop"
	buyerSubBranchSelector    = "#mf_txppWframe_edtDmnrMpbNoTop"
	buyerCompanySelector      = "#mf_txppWframe_edtDmnrTnmNmTop"
	buyerRepSelector          = "#mf_txppWframe_edtDmnrRprsFnmTop"
	buyerAddressSelector      = "#mf_txppWframe_edtDmnrPfbAdrTop"
	buyerBizTypeSelector      = "#mf_txppWframe_edtDmnrBcNmTop"
	buyerBizItemSelector      = "#mf_txppWframe_edtDmnrItmNmTop"

	emailIDSelector           = "#mf_txppWframe_edtDmnrMchrgEmlIdTop"
	emailDomainSelector       = "#mf_txppWframe_edtDmnrMchrgEmlDmanTop"
	emailDomainCtlSelector    = "#mf_txppWframe_cmbDmnrMchrgEmlDmanCtlTop"
	email2IDSelector          = "#mf_txppWframe_edtDmnrSchrgEmlIdTop"
	email2DomainSelector      = "#mf_txppWframe_edtDmnrSchrgEmlDmanTop"
	email2DomainCtlSelector   = "#mf_txppWframe_cmbDmnrSchrgEmlDmanCtlTop"
	emailDirectInputLabel     = "직접입력"
	branchPopupSelector       = "#mf_txppWframe_ABTIBsnoUnitPopup2"
	branchGridSelector        = "#mf_txppWframe_ABTIBsnoUnitPopup2_wframe_grid1"
	branchRowSelector         = "#mf_txppWframe_ABTIBsnoUnitPopup2_wframe_grid1 tbody tr"
	branchConfirmSelector     = "#mf_txppWframe_ABTIBsnoUnitPopup2_wframe_trigger66"
	writeDateSelector         = "#mf_txppWframe_calWrtDtTop_input"
	itemRowPrefix             = "#mf_txppWframe_genEtxivLsatTop_0_"
	receiptGroupSelector      = "#mf_txppWframe_rdoRecApeClCdTop"
	receiptClaimSelector      = "#mf_txppWframe_rdoRecApeClCdTop_input_0"
	receiptPaidSelector       = "#mf_txppWframe_rdoRecApeClCdTop_input_1"
	totalAmountSelector       = "#mf_txppWframe_edtTotaAmtTop"
	totalSupplySelector       = "#mf_txppWframe_edtSumSplCftTop"
	totalTaxSelector          = "#mf_txppWframe_edtSumTxamtTop"
	issueButtonSelector       = "#mf_txppWframe_btnIsn"
	userConfirmButtonSelector = "#mf_txppWframe_UTEETZZA89_wframe_trigger20"
)

var (
	passwordInputSelectors = []string{
		"#input_cert_pw",
		"input.passwd_input",
		"input[data-tk-kbdtype]",
		`input[title="비밀번호 입력"]`,
	}
	certConfirmSelectors = []string{certConfirmSelectorA, certConfirmSelectorB}

	// hddRetryEvents are replayed on the HDD tab when a plain click did not
	// open the drive menu.
	hddRetryEvents = []string{"mouseover", "mouseenter", "mousedown", "mouseup", "click"}
)

// Item row fields of the first line of the invoice.
const (
	itemDaySelector    = itemRowPrefix + "edtLsatSplDdTop"
	itemNameSelector   = itemRowPrefix + "edtLsatNmTop"
	itemQtySelector    = itemRowPrefix + "edtLsatQtyTop"
	itemPriceSelector  = itemRowPrefix + "edtLsatUtprcTop"
	itemSupplySelector = itemRowPrefix + "edtLsatSplCftTop"
	itemTaxSelector    = itemRowPrefix + "edtLsatTxamtTop"
	itemRemarkSelector = itemRowPrefix + "edtLsatRmrkCntnTop"
)

// NoCertificatePlaceholder is the text of the only row the certificate
// table shows when the selected drive holds no certificate.
const NoCertificatePlaceholder = "인증서 정보가 없습니다."
