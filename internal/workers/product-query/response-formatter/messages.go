// internal/workers/product-query/response-formatter/messages.go
package responseformatter

const (
	WelcomeMessage = "👋 Hi! I can help you with pool equipment.\n\n" +
		"Try asking:\n" +
		"• price for part X7-2291\n" +
		"• do you have Hayward SuperPumps?\n" +
		"• what are your store hours?"

	UnknownMessage = "I'm sorry, I didn't quite understand that. I can search for products, " +
		"check prices and details by part number, or find store locations and hours."

	GenericApology = "I apologize, but I couldn't find what you're looking for. " +
		"Could you please try rephrasing your question?"

	NoResultsMessage = "I couldn't find anything matching your request. " +
		"Could you try rephrasing it or sending a part number?"

	NoStoresMessage = "I couldn't find any store information."

	NoPriceMessage = "I couldn't find pricing information for that part."

	BackendUnavailableMessage = "Sorry, our product services aren't responding right now. " +
		"Please try again in a few minutes."

	NeedPartNumberForPrice = "I can look up a price if you send the part number or the product name, " +
		"for example: \"price for part X7-2291\"."

	NeedProductForInfo = "Which product do you mean? Please send its part number or name."

	NeedSearchTerm = "What product are you looking for? Please describe it or send a part number."
)
