package api

import "time"

// Sticker is a single Telegram sticker as returned inside a set.
type Sticker struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Type         string `json:"type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	IsAnimated   bool   `json:"is_animated"`
	IsVideo      bool   `json:"is_video"`
	Emoji        string `json:"emoji,omitempty"`
	SetName      string `json:"set_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Thumbnail is a set preview image.
type Thumbnail struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// TelegramStickerSetInfo is the raw Bot API view of a set.
type TelegramStickerSetInfo struct {
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	IsAnimated    bool       `json:"is_animated"`
	IsVideo       bool       `json:"is_video"`
	ContainsMasks bool       `json:"contains_masks"`
	Stickers      []Sticker  `json:"stickers"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
}

// Category groups sticker sets by theme.
type Category struct {
	ID           int64  `json:"id"`
	Key          string `json:"key"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IconURL      string `json:"iconUrl,omitempty"`
	DisplayOrder int    `json:"displayOrder"`
	IsActive     bool   `json:"isActive"`
}

// StickerSet is the API representation of a published pack.
type StickerSet struct {
	ID                     int64                   `json:"id"`
	Name                   string                  `json:"name"`
	Title                  string                  `json:"title"`
	CreatedAt              string                  `json:"createdAt"`
	UpdatedAt              string                  `json:"updatedAt"`
	TelegramStickerSetInfo *TelegramStickerSetInfo `json:"telegramStickerSetInfo,omitempty"`

	UserID    int64  `json:"userId,omitempty"`
	AuthorID  int64  `json:"authorId,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`

	Visibility       string   `json:"visibility,omitempty"`
	IsPublished      bool     `json:"isPublished,omitempty"`
	IsPrivate        bool     `json:"isPrivate,omitempty"`
	IsBlocked        bool     `json:"isBlocked,omitempty"`
	BlockReason      *string  `json:"blockReason,omitempty"`
	AvailableActions []string `json:"availableActions,omitempty"`

	LikesCount           *int  `json:"likesCount,omitempty"`
	IsLikedByCurrentUser *bool `json:"isLikedByCurrentUser,omitempty"`
	Likes                *int  `json:"likes,omitempty"`
	IsLiked              *bool `json:"isLiked,omitempty"`

	Categories []Category `json:"categories,omitempty"`
}

// LikeCount returns likesCount, falling back to the older likes field.
func (s StickerSet) LikeCount() (int, bool) {
	if s.LikesCount != nil {
		return *s.LikesCount, true
	}
	if s.Likes != nil {
		return *s.Likes, true
	}
	return 0, false
}

// LikedByMe returns isLikedByCurrentUser, falling back to isLiked.
func (s StickerSet) LikedByMe() (bool, bool) {
	if s.IsLikedByCurrentUser != nil {
		return *s.IsLikedByCurrentUser, true
	}
	if s.IsLiked != nil {
		return *s.IsLiked, true
	}
	return false, false
}

// Stickers returns the stickers of the set, if the Telegram info is present.
func (s StickerSet) Stickers() []Sticker {
	if s.TelegramStickerSetInfo == nil {
		return nil
	}
	return s.TelegramStickerSetInfo.Stickers
}

// HasAction reports whether the server allows action on this set.
func (s StickerSet) HasAction(action string) bool {
	for _, a := range s.AvailableActions {
		if a == action {
			return true
		}
	}
	return false
}

// Page is the Spring-style paged list envelope.
type Page[T any] struct {
	Content          []T  `json:"content"`
	TotalElements    int  `json:"totalElements"`
	TotalPages       int  `json:"totalPages"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	NumberOfElements int  `json:"numberOfElements"`
}

// StickerSetPage is one page of sticker sets.
type StickerSetPage = Page[StickerSet]

// StickerSetFilter narrows a gallery listing.
type StickerSetFilter struct {
	Sort         string
	Direction    string
	CategoryKeys []string
	Type         string
	LikedOnly    bool
	DateFrom     *time.Time
	DateTo       *time.Time
}

// AuthorInfo is the author part of StickerSetMeta.
type AuthorInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// StickerSetMeta is the author and like summary of a set.
type StickerSetMeta struct {
	StickerSetID int64      `json:"stickerSetId"`
	Author       AuthorInfo `json:"author"`
	Likes        int        `json:"likes"`
}

// CreateStickerSetRequest registers an existing Telegram pack.
type CreateStickerSetRequest struct {
	UserID       int64    `json:"userId,omitempty"`
	Title        string   `json:"title,omitempty" validate:"omitempty,max=64"`
	Name         string   `json:"name" validate:"required,min=1,max=200"`
	CategoryKeys []string `json:"categoryKeys,omitempty" validate:"omitempty,dive,required"`
}

// CategorySuggestion is one suggested category for a title.
type CategorySuggestion struct {
	CategoryKey  string  `json:"categoryKey"`
	CategoryName string  `json:"categoryName"`
	Confidence   float64 `json:"confidence,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// CategorySuggestionResult is the response of SuggestCategoriesForTitle.
type CategorySuggestionResult struct {
	AnalyzedTitle       string               `json:"analyzedTitle,omitempty"`
	SuggestedCategories []CategorySuggestion `json:"suggestedCategories"`
	Reasoning           string               `json:"reasoning,omitempty"`
}

// AuthUser is the user block of AuthStatus.
type AuthUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthStatus is the response of CheckAuthStatus.
type AuthStatus struct {
	Authenticated bool      `json:"authenticated"`
	Role          string    `json:"role,omitempty"`
	Message       string    `json:"message,omitempty"`
	User          *AuthUser `json:"user,omitempty"`
}

// UserInfo is a user as shown on a profile page.
type UserInfo struct {
	ID           int64  `json:"id"`
	TelegramID   int64  `json:"telegramId"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	IsPremium    bool   `json:"isPremium,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	Role         string `json:"role,omitempty"`
	ArtBalance   int64  `json:"artBalance"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Profile is the role and balance of the current user.
type Profile struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	Role       string `json:"role"`
	ArtBalance int64  `json:"artBalance"`
}

// UserPhoto points at a user's avatar file.
type UserPhoto struct {
	ProfilePhotoFileID string `json:"profilePhotoFileId,omitempty"`
	ProfilePhotos      any    `json:"profilePhotos,omitempty"`
}

// LeaderboardUser is a row of the users leaderboard.
type LeaderboardUser struct {
	UserID       int64   `json:"userId"`
	Username     *string `json:"username"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	TotalCount   int     `json:"totalCount"`
	PublicCount  int     `json:"publicCount"`
	PrivateCount int     `json:"privateCount"`
}

// LeaderboardAuthor is a row of the authors leaderboard.
type LeaderboardAuthor struct {
	AuthorID     int64   `json:"authorId"`
	Username     *string `json:"username"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	TotalCount   int     `json:"totalCount"`
	PublicCount  int     `json:"publicCount"`
	PrivateCount int     `json:"privateCount"`
}

// Leaderboard is a paged leaderboard response.
type Leaderboard[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
	HasNext       bool `json:"hasNext"`
	HasPrevious   bool `json:"hasPrevious"`
}

// LikeToggle is the server answer to a like toggle.
type LikeToggle struct {
	IsLiked    bool `json:"isLiked"`
	TotalLikes int  `json:"totalLikes"`
}

// SwipeStats summarises the current user's swipes for the day.
type SwipeStats struct {
	TotalSwipes     int  `json:"totalSwipes"`
	Likes           int  `json:"likes"`
	Dislikes        int  `json:"dislikes"`
	DailyLimit      int  `json:"dailyLimit"`
	RemainingSwipes int  `json:"remainingSwipes"`
	IsUnlimited     bool `json:"isUnlimited"`
}

// SwipeLimit is the body of a 429 from the swipe feed.
type SwipeLimit struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	DailyLimit int    `json:"dailyLimit"`
	ResetAt    string `json:"resetAt,omitempty"`
}

// Wallet is a linked TON wallet.
type Wallet struct {
	ID            int64   `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	WalletType    *string `json:"walletType"`
	IsActive      bool    `json:"isActive"`
	CreatedAt     string  `json:"createdAt"`
}

// LinkWalletRequest links a wallet to the current user.
type LinkWalletRequest struct {
	WalletAddress string  `json:"walletAddress" validate:"required,tonaddress"`
	WalletType    *string `json:"walletType,omitempty"`
}

// DonationPrepareRequest starts a donation to a set's author.
type DonationPrepareRequest struct {
	StickerSetID int64 `json:"stickerSetId" validate:"required,gt=0"`
	AmountNano   int64 `json:"amountNano" validate:"required,gt=0"`
}

// TransactionLeg is one transfer inside a donation intent.
type TransactionLeg struct {
	ID              int64  `json:"id"`
	LegType         string `json:"legType"`
	ToEntityID      int64  `json:"toEntityId"`
	ToWalletAddress string `json:"toWalletAddress"`
	AmountNano      int64  `json:"amountNano"`
}

// DonationPrepareResponse describes the transaction the wallet must sign.
type DonationPrepareResponse struct {
	IntentID   int64            `json:"intentId"`
	IntentType string           `json:"intentType"`
	Status     string           `json:"status"`
	AmountNano int64            `json:"amountNano"`
	Currency   string           `json:"currency"`
	Legs       []TransactionLeg `json:"legs"`
}

// DonationConfirmRequest reports a signed transaction back to the API.
type DonationConfirmRequest struct {
	IntentID   int64  `json:"intentId" validate:"required,gt=0"`
	TxHash     string `json:"txHash" validate:"required"`
	FromWallet string `json:"fromWallet" validate:"required,tonaddress"`
}

// DonationConfirmResponse is the result of ConfirmDonation.
type DonationConfirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StarsInvoice is a Telegram Stars payment link.
type StarsInvoice struct {
	InvoiceURL string `json:"invoiceUrl"`
}

// StarsPurchase is a completed Stars purchase.
type StarsPurchase struct {
	ID          int64  `json:"id"`
	PackageCode string `json:"packageCode"`
	StarsAmount int    `json:"starsAmount"`
	ArtAmount   int    `json:"artAmount"`
	CreatedAt   string `json:"createdAt"`
}

// Generation task statuses.
const (
	GenerationPending    = "PENDING"
	GenerationProcessing = "PROCESSING"
	GenerationCompleted  = "COMPLETED"
	GenerationFailed     = "FAILED"
	GenerationTimeout    = "TIMEOUT"
)

// GenerationRequest asks for a new AI sticker image.
type GenerationRequest struct {
	Prompt        string `json:"prompt" validate:"required,min=1,max=1000"`
	StylePresetID *int64 `json:"stylePresetId,omitempty"`
	Seed          *int64 `json:"seed,omitempty"`
}

// GenerationTask is returned when a generation starts.
type GenerationTask struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// GenerationStatus is a point-in-time view of a generation task.
type GenerationStatus struct {
	TaskID       string `json:"taskId"`
	Status       string `json:"status"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ImageID      string `json:"imageId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
}

// Terminal reports whether the task will not change status again.
func (s GenerationStatus) Terminal() bool {
	switch s.Status {
	case GenerationCompleted, GenerationFailed, GenerationTimeout:
		return true
	}
	return false
}

// SaveImageRequest adds a generated image to a sticker set.
type SaveImageRequest struct {
	ImageID        string `json:"imageId" validate:"required"`
	StickerSetName string `json:"stickerSetName,omitempty"`
	Emoji          string `json:"emoji,omitempty"`
}

// SaveImageResponse describes where the image was stored.
type SaveImageResponse struct {
	StickerSetName string `json:"stickerSetName"`
	StickerFileID  string `json:"stickerFileId,omitempty"`
	StickerIndex   int    `json:"stickerIndex,omitempty"`
}
