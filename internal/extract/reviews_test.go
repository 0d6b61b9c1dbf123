package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const reviewsHTML = `<html><body><ul>
<li class="place_apply_pui EjjAW">
  <div class="pui__JiVbY3"><span class="pui__uslU0d">맛집헌터</span></div>
  <div class="pui__vn15t2"><a>파스타가 정말 맛있어요. 재방문 의사 있습니다.</a></div>
  <div class="pui__QKE5Pr">
    <span class="pui__gfuUIT"><time>7.21.월</time></span>
    <span class="pui__gfuUIT">3번째 방문</span>
  </div>
</li>
<li class="place_apply_pui EjjAW">
  <div class="pui__vn15t2"><a>보통이었어요</a></div>
  <div class="pui__QKE5Pr">
    <span class="pui__gfuUIT"><time>7.19.토</time></span>
  </div>
</li>
</ul></body></html>`

// TestReviews parses the ordered review list with all fields present.
func TestReviews(t *testing.T) {
	t.Parallel()

	reviews, err := Reviews(reviewsHTML)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	require.Equal(t, "맛집헌터", reviews[0].Nickname)
	require.Equal(t, "파스타가 정말 맛있어요. 재방문 의사 있습니다.", reviews[0].Content)
	require.Equal(t, "7.21.월", reviews[0].Date)
	require.Equal(t, "3번째 방문", reviews[0].Revisit)
}

// TestReviewsMissingElements leaves absent fields empty instead of failing.
func TestReviewsMissingElements(t *testing.T) {
	t.Parallel()

	reviews, err := Reviews(reviewsHTML)
	require.NoError(t, err)

	second := reviews[1]
	require.Empty(t, second.Nickname)
	require.Equal(t, "보통이었어요", second.Content)
	require.Equal(t, "7.19.토", second.Date)
	require.Empty(t, second.Revisit)
}

// TestReviewsEmptyDocument returns an empty slice, not an error; the
// pipeline decides that zero reviews is a failure.
func TestReviewsEmptyDocument(t *testing.T) {
	t.Parallel()

	reviews, err := Reviews("<html><body><ul></ul></body></html>")
	require.NoError(t, err)
	require.Empty(t, reviews)
}
