package episode

import "github.com/pkg/errors"

// Episode state machine failures.
var (
	ErrAlreadyInstalled       = errors.New("MonuverseEpisode: already installed")
	ErrNotInstalled           = errors.New("MonuverseEpisode: not installed")
	ErrInvalidEpisode         = errors.New("MonuverseEpisode: invalid episode")
	ErrNoSuchTransition       = errors.New("MonuverseEpisode: no such transition")
	ErrWhitelistingNotAllowed = errors.New("MonuverseEpisode: whitelisting not allowed")
	ErrRevealNotAllowed       = errors.New("MonuverseEpisode: reveal not allowed")
	ErrAlreadyRequested       = errors.New("MonuverseEpisode: reveal already requested")
	ErrAlreadyRevealed        = errors.New("MonuverseEpisode: already revealed")
	ErrUnknownRequest         = errors.New("MonuverseEpisode: unknown randomness request")
	ErrNoRandomWords          = errors.New("MonuverseEpisode: no random words")
)

// Minting failures.
var (
	ErrSenderNotWhitelisted = errors.New("ArchOfPeace: sender not whitelisted")
	ErrGroupNotAllowed      = errors.New("ArchOfPeace: group not allowed")
	ErrQuantityNotAllowed   = errors.New("ArchOfPeace: quantity not allowed")
	ErrOfferUnmatched       = errors.New("ArchOfPeace: offer unmatched")
	ErrNoMintChapter        = errors.New("ArchOfPeace: no mint chapter")
)

// Access control failures.
var (
	ErrCallerNotOwner            = errors.New("Ownable: caller is not the owner")
	ErrOnlyCoordinatorCanFulfill = errors.New("VRFConsumerBaseV2: only coordinator can fulfill")
)
