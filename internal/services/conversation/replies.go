package conversation

// Тексты реплик бота. Все сообщения пользователю — на русском языке.
const (
	msgGreetingAskName = "Привет! Я твой бот психологической поддержки. " +
		"Прежде чем мы начнем, как я могу к тебе обращаться?\n\n" +
		"Пожалуйста, введи имя, которое будет использоваться в нашем общении."

	msgNameInvalid = "Пожалуйста, введи более подходящее имя (от 2 до 50 символов)."

	msgNameError = "Произошла ошибка при получении имени. Попробуй еще раз или начни с /start."

	msgAskNewName = "Пожалуйста, введи новое имя, которое будет использоваться."

	msgDataUnavailable = "Произошла ошибка при получении ваших данных."

	msgSubscriptionExpired = "Срок твоей подписки истек. " +
		"Пожалуйста, оплати услугу поддержки, чтобы продолжить общение."

	msgCompletionFailed = "Произошла ошибка при получении ответа. " +
		"Пожалуйста, попробуй перефразировать или повторить позже."

	msgCompleterUnavailable = "Извини, сервис ответов временно недоступен " +
		"из-за настроек бота. Попробуй позже."

	msgTooManyMessages = "Слишком много сообщений подряд. Подожди немного и напиши снова."

	msgInfo = "ℹ️ Здесь будет информация о боте, услугах, правилах и т.д."
)

const (
	greetingBackFmt  = "Снова привет, %s! Чем могу быть полезен сегодня?"
	nameConfirmedFmt = "Отлично, буду обращаться к тебе %s!"
)
