package normalize

// stopWords lists tokens excluded from keyword extraction: generic
// English stop words plus finance-news boilerplate and outlet names that
// would otherwise dominate every article's keyword list.
var stopWords = []string{
	// English stop words.
	"a", "about", "above", "after", "again", "against", "all", "also",
	"am", "an", "and", "any", "are", "as", "at", "be", "because", "been",
	"before", "being", "below", "between", "both", "but", "by", "can",
	"could", "did", "do", "does", "doing", "down", "during", "each",
	"few", "for", "from", "further", "had", "has", "have", "having",
	"he", "her", "here", "hers", "him", "his", "how", "i", "if", "in",
	"into", "is", "it", "its", "just", "me", "more", "most", "my", "no",
	"nor", "not", "now", "of", "off", "on", "once", "only", "or",
	"other", "our", "ours", "out", "over", "own", "said", "same", "she",
	"should", "so", "some", "such", "than", "that", "the", "their",
	"theirs", "them", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "would", "you", "your", "yours",

	// Finance-news boilerplate.
	"stock", "stocks", "share", "shares", "market", "markets", "news",
	"report", "reports", "reported", "update", "updates", "latest",
	"today", "yesterday", "week", "month", "year", "quarter", "company",
	"companies", "inc", "corp", "ltd", "group", "says", "say", "new",
	"announces", "announced", "million", "billion", "percent", "price",
	"prices", "trading", "investor", "investors", "analyst", "analysts",

	// Outlet names.
	"reuters", "bloomberg", "cnbc", "marketwatch", "barrons", "wsj",
	"forbes", "benzinga", "investing", "seekingalpha", "yahoo",
	"finance", "financial", "businesswire", "prnewswire", "globenewswire",
}
